package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const RootEnv = "ADINSIGHT_ROOT"

// GetProjectRoot renvoie $ADINSIGHT_ROOT, sinon le parent du dossier de l'exécutable (bin/..)
func GetProjectRoot() string {
	if env := os.Getenv(RootEnv); env != "" {
		return env
	}
	executable, err := os.Executable()
	if err != nil {
		return "."
	}
	dir := filepath.Dir(executable)
	return filepath.Clean(filepath.Join(dir, ".."))
}

// Resolve rend path absolu par rapport à la racine du projet
func Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(GetProjectRoot(), path)
}

func EnsureDirExists(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// ArchiveLog déplace un fichier de log existant dans <dir>/archives, suffixé par la date
func ArchiveLog(dir, filename string, now time.Time) error {
	current := filepath.Join(dir, filename)
	if _, err := os.Stat(current); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	archives := filepath.Join(dir, "archives")
	if err := EnsureDirExists(archives); err != nil {
		return err
	}
	target := filepath.Join(archives, filename+"."+now.Format("2006-01-02-15-04-05"))
	if err := os.Rename(current, target); err != nil {
		return fmt.Errorf("archive %s: %w", filename, err)
	}
	return nil
}
