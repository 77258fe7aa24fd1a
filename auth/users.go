package auth

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"adinsight/config"
	"adinsight/utils"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UsersFile struct {
	Users map[string]UserInfo `yaml:"users"`
}

type UserInfo struct {
	Hash     string `yaml:"hash"`
	Salt     string `yaml:"salt"`
	Admin    bool   `yaml:"admin"`
	Disabled bool   `yaml:"disabled,omitempty"`
	// dataset -> colonne -> valeurs autorisées
	Access map[string]map[string][]string `yaml:"access,omitempty"`
}

func LoadUsers(file string) (*UsersFile, error) {
	var uf UsersFile
	data, err := os.ReadFile(utils.Resolve(file))
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, err
	}
	if uf.Users == nil {
		uf.Users = make(map[string]UserInfo)
	}
	return &uf, nil
}

// SaveUsers réécrit users.yaml via un fichier temporaire renommé
func SaveUsers(file string, uf *UsersFile) error {
	path := utils.Resolve(file)
	data, err := yaml.Marshal(uf)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".users.*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Ex: "SELECT hash, salt, is_admin FROM users WHERE name = ? AND password =  ? "
func GetUserFromDB(ctx context.Context, db *sql.DB, query, username string, password string) (hash, salt string, isAdmin bool, err error) {
	row := db.QueryRowContext(ctx, query, username, password)
	var adminVal interface{}
	if err = row.Scan(&hash, &salt, &adminVal); err != nil {
		return "", "", false, err
	}
	isAdmin = dbToBool(adminVal)
	return
}

func dbToBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	case []uint8:
		s := string(val)
		return s == "1" || s == "t" || s == "T" || s == "true" || s == "TRUE"
	case string:
		return val == "1" || val == "t" || val == "true" || val == "TRUE"
	}
	return false
}

var hashers = map[string]func(string) string{
	"sha256": sha256Hash,
	"sha1":   sha1Hash,
	"md5":    md5Hash,
	"clear":  func(s string) string { return s },
}

// ApplyHashMacro évalue une macro du type {sha256}({salt}{password}).
func ApplyHashMacro(macro, password, user, userSalt, globalSalt string) (string, error) {
	replace := strings.NewReplacer(
		"{password}", password,
		"{user}", user,
		"{salt}", userSalt,
		"{globalsalt}", globalSalt,
	)
	macro = strings.TrimSpace(macro)
	for name, hash := range hashers {
		prefix := "{" + name + "}"
		if strings.HasPrefix(macro, prefix) {
			plain := extractBetween(macro, prefix+"(", ")")
			return hash(replace.Replace(plain)), nil
		}
	}
	return "", errors.New("unsupported hash macro")
}

func extractBetween(str, start, end string) string {
	a := strings.Index(str, start)
	if a == -1 {
		return ""
	}
	a += len(start)
	b := strings.LastIndex(str, end)
	if b == -1 || b <= a {
		return ""
	}
	return str[a:b]
}

func sha256Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
func sha1Hash(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
func md5Hash(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// driverName traduit le backend de config.yaml en nom de driver database/sql
func driverName(backend string) string {
	if backend == "sqlite" {
		return "sqlite3"
	}
	return backend
}

// Authenticator vérifie un couple utilisateur/mot de passe contre users.yaml ou une base SQL.
type Authenticator struct {
	cfg    config.AuthConfig
	users  *UsersFile
	db     *sql.DB
	logger *zap.Logger
}

func NewAuthenticator(cfg config.AuthConfig, users *UsersFile, logger *zap.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Authenticator{cfg: cfg, users: users, logger: logger}
	switch cfg.UserBackend {
	case "file":
		if users == nil {
			return nil, errors.New("file backend without users file")
		}
	case "mysql", "postgres", "sqlite":
		db, err := sql.Open(driverName(cfg.UserBackend), cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.UserBackend, err)
		}
		a.db = db
	default:
		return nil, fmt.Errorf("unsupported user backend %q", cfg.UserBackend)
	}
	return a, nil
}

// DB is the user database, nil for the file backend.
func (a *Authenticator) DB() *sql.DB { return a.db }

func (a *Authenticator) Users() *UsersFile { return a.users }

func (a *Authenticator) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Authenticate returns whether username is an admin, or ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if a.db == nil {
		u, ok := a.users.Users[username]
		if !ok || u.Disabled {
			a.logger.Info("login refused", zap.String("user", username), zap.String("reason", "no user"))
			return false, ErrInvalidCredentials
		}
		passHash, err := ApplyHashMacro(a.cfg.HashMacro, password, username, u.Salt, a.cfg.Salt)
		if err != nil {
			return false, err
		}
		if passHash != u.Hash {
			a.logger.Info("login refused", zap.String("user", username), zap.String("reason", "wrong password"))
			return false, ErrInvalidCredentials
		}
		return u.Admin, nil
	}

	hash, salt, isAdmin, err := GetUserFromDB(ctx, a.db, a.cfg.UserRequest, username, password)
	if errors.Is(err, sql.ErrNoRows) {
		a.logger.Info("login refused", zap.String("user", username), zap.String("reason", "db no user"))
		return false, ErrInvalidCredentials
	}
	if err != nil {
		return false, fmt.Errorf("user lookup: %w", err)
	}
	// DBPassHash: la requête SQL n'a pas vérifié le mot de passe, on le fait ici
	if a.cfg.DBPassHash {
		passHash, err := ApplyHashMacro(a.cfg.DBHashMacro, password, username, salt, a.cfg.Salt)
		if err != nil {
			return false, err
		}
		if passHash != hash {
			a.logger.Info("login refused", zap.String("user", username), zap.String("reason", "db wrong password"))
			return false, ErrInvalidCredentials
		}
	}
	return isAdmin, nil
}
