package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"adinsight/utils"
)

var serviceCmd = &cobra.Command{
	Use:       "service start|stop|reload|restart",
	Short:     "Pilote le serveur adinsight via son fichier pid",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"start", "stop", "reload", "restart"},
	RunE:      handleService,
}

type service struct {
	pidFile string
	binFile string
	out     func(format string, args ...any)
}

func newService(cmd *cobra.Command) service {
	root := utils.GetProjectRoot()
	return service{
		pidFile: filepath.Join(root, "pid", "adinsight.pid"),
		binFile: filepath.Join(root, "bin", "adinsight"),
		out: func(format string, args ...any) {
			fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
		},
	}
}

func handleService(cmd *cobra.Command, args []string) error {
	s := newService(cmd)
	if err := utils.EnsureDirExists(filepath.Dir(s.pidFile)); err != nil {
		return err
	}
	switch args[0] {
	case "start":
		return s.start()
	case "stop":
		return s.stop()
	case "reload":
		return s.signal(syscall.SIGHUP, "reloaded")
	case "restart":
		if err := s.stop(); err != nil {
			return err
		}
		time.Sleep(1 * time.Second)
		return s.start()
	}
	return nil
}

func (s service) start() error {
	if _, err := os.Stat(s.pidFile); err == nil {
		s.out("adinsight already running!")
		return nil
	}
	cmd := exec.Command(s.binFile, "-config", configFile)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	if err := os.WriteFile(s.pidFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0644); err != nil {
		return err
	}
	s.out("adinsight started, pid=%d", cmd.Process.Pid)
	return nil
}

func (s service) stop() error {
	pid, err := s.readPID()
	if err != nil {
		s.out("Not running")
		return nil
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		s.out("Failed to stop: %v", err)
	}
	_ = os.Remove(s.pidFile)
	s.out("adinsight stopped.")
	return nil
}

func (s service) signal(sig syscall.Signal, done string) error {
	pid, err := s.readPID()
	if err != nil {
		s.out("Not running")
		return nil
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}
	s.out("adinsight %s.", done)
	return nil
}

func (s service) readPID() (int, error) {
	data, err := os.ReadFile(s.pidFile)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
