package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"adinsight/auth"
	"adinsight/config"
	"adinsight/utils"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Gère les utilisateurs du fichier users.yaml",
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Ajoute un utilisateur interactif (mot de passe demandé)",
	Args:  cobra.ExactArgs(1),
	RunE:  handleUsersAdd,
}

var usersDisableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Désactive un utilisateur sans le supprimer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd.OutOrStdout(), args[0], true)
	},
}

var usersEnableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Réactive un utilisateur désactivé",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd.OutOrStdout(), args[0], false)
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Liste tous les utilisateurs",
	Args:  cobra.NoArgs,
	RunE:  handleUsersList,
}

// readPassword est remplacé dans les tests.
var readPassword = utils.TerminalPassword(os.Stdin)

func init() {
	usersAddCmd.Flags().Bool("admin", false, "create an administrator without asking")
	usersCmd.AddCommand(usersAddCmd, usersDisableCmd, usersEnableCmd, usersListCmd)
}

func loadUsers() (*config.Config, string, *auth.UsersFile, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, "", nil, err
	}
	if cfg.Auth.UserBackend != "file" {
		return nil, "", nil, fmt.Errorf("user backend %q: users are managed in the database", cfg.Auth.UserBackend)
	}
	path := utils.Resolve(cfg.Auth.UserFile)
	users, err := auth.LoadUsers(path)
	if errors.Is(err, os.ErrNotExist) {
		users = &auth.UsersFile{Users: make(map[string]auth.UserInfo)}
	} else if err != nil {
		return nil, "", nil, fmt.Errorf("lecture %s: %w", path, err)
	}
	return cfg, path, users, nil
}

func handleUsersAdd(cmd *cobra.Command, args []string) error {
	username := strings.TrimSpace(args[0])
	cfg, path, users, err := loadUsers()
	if err != nil {
		return err
	}
	if _, exists := users.Users[username]; exists {
		return fmt.Errorf("l'utilisateur %s existe déjà", username)
	}
	pass, err := utils.PromptPasswordTwice(cmd.OutOrStdout(), readPassword)
	if err != nil {
		return err
	}
	salt := utils.RandomHex(8)
	hash, err := auth.ApplyHashMacro(cfg.Auth.HashMacro, strings.TrimSpace(pass), username, salt, cfg.Auth.Salt)
	if err != nil {
		return fmt.Errorf("hashage: %w", err)
	}
	admin, _ := cmd.Flags().GetBool("admin")
	if !cmd.Flags().Changed("admin") {
		admin = askYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), "Est-ce un administrateur ? (y/N) : ")
	}
	users.Users[username] = auth.UserInfo{Hash: hash, Salt: salt, Admin: admin}
	if err := auth.SaveUsers(path, users); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Utilisateur ajouté.")
	return nil
}

func askYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.TrimSpace(line) {
	case "y", "Y", "oui", "O", "o":
		return true
	}
	return false
}

func setDisabled(out io.Writer, username string, disabled bool) error {
	_, path, users, err := loadUsers()
	if err != nil {
		return err
	}
	info, ok := users.Users[username]
	if !ok {
		return fmt.Errorf("utilisateur %s non trouvé", username)
	}
	if info.Disabled == disabled {
		fmt.Fprintln(out, "Rien à faire.")
		return nil
	}
	info.Disabled = disabled
	users.Users[username] = info
	if err := auth.SaveUsers(path, users); err != nil {
		return err
	}
	if disabled {
		fmt.Fprintln(out, "Utilisateur désactivé.")
	} else {
		fmt.Fprintln(out, "Utilisateur réactivé.")
	}
	return nil
}

func handleUsersList(cmd *cobra.Command, _ []string) error {
	_, _, users, err := loadUsers()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(users.Users))
	for u := range users.Users {
		names = append(names, u)
	}
	sort.Strings(names)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Utilisateurs enregistrés :")
	for _, u := range names {
		info := users.Users[u]
		role := "user"
		if info.Admin {
			role = "admin"
		}
		if info.Disabled {
			role += ", désactivé"
		}
		fmt.Fprintf(out, "- %s [%s]\n", u, role)
	}
	return nil
}
