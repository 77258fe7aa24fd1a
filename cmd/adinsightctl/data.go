package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adinsight/app"
	"adinsight/config"
	"adinsight/dataset"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [dataset...]",
	Short: "Synchronise la copie locale des datasets (tous par défaut)",
	RunE:  handleRefresh,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <dataset>",
	Short: "Décode un dataset et affiche ses colonnes",
	Args:  cobra.ExactArgs(1),
	RunE:  handleInspect,
}

func init() {
	inspectCmd.Flags().IntP("sample", "n", 5, "rows to print")
}

func openData(ctx context.Context) (*config.DatasetsFile, *app.Data, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	df, err := config.LoadDatasets(cfg.Data.DatasetsFile)
	if err != nil {
		return nil, nil, err
	}
	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, nil, err
		}
	}
	data, err := app.OpenData(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return df, data, nil
}

func handleRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	df, data, err := openData(ctx)
	if err != nil {
		return err
	}
	catalog := config.NewCatalog(df)
	keys := args
	if len(keys) == 0 {
		keys = catalog.Keys()
	}
	failed := 0
	for _, key := range keys {
		d, ok := catalog.Lookup(key)
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: dataset inconnu\n", key)
			failed++
			continue
		}
		lf, err := data.Store.Sync(ctx, d)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", key, err)
			failed++
			continue
		}
		snap, err := dataset.Decode(lf.Path, d)
		if err != nil {
			_ = data.Store.Discard(d)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", key, err)
			failed++
			continue
		}
		state := "à jour"
		switch {
		case lf.Downloaded:
			state = "téléchargé"
		case lf.Stale:
			state = fmt.Sprintf("copie locale conservée (%v)", lf.Warning)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d lignes, dernière mise à jour %s, %s\n",
			key, snap.Table.Rows(), snap.LastUpdated, state)
	}
	if failed > 0 {
		return fmt.Errorf("%d dataset(s) en échec", failed)
	}
	return nil
}

func handleInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	df, data, err := openData(ctx)
	if err != nil {
		return err
	}
	d, ok := config.NewCatalog(df).Lookup(args[0])
	if !ok {
		return fmt.Errorf("%s: dataset inconnu", args[0])
	}
	lf, err := data.Store.Sync(ctx, d)
	if err != nil {
		return err
	}
	snap, err := dataset.Decode(lf.Path, d)
	if err != nil {
		return err
	}
	sample, _ := cmd.Flags().GetInt("sample")
	return printTable(cmd.OutOrStdout(), snap, sample)
}

func printTable(w io.Writer, snap *dataset.Snapshot, sample int) error {
	t := snap.Table
	fmt.Fprintf(w, "%s: %d lignes, %d colonnes, dernière mise à jour %s\n\n", snap.Key, t.Rows(), t.Width(), snap.LastUpdated)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLONNE\tTYPE\tVIDES\tEXEMPLE")
	for _, c := range t.Columns() {
		nulls := 0
		example := ""
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				nulls++
			} else if example == "" {
				example = c.String(i)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.Name(), c.Kind(), nulls, example)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if sample <= 0 || t.Rows() == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, name := range t.Names() {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, name)
	}
	fmt.Fprintln(tw)
	for r := 0; r < sample && r < t.Rows(); r++ {
		for i, c := range t.Columns() {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c.String(r))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
