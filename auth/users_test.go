package auth

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"adinsight/config"
	"adinsight/utils"
)

func TestExtractBetween(t *testing.T) {
	str := "{sha256}(foo{password}{user}{salt}{globalsalt})"
	got := extractBetween(str, "{sha256}(", ")")
	want := "foo{password}{user}{salt}{globalsalt}"
	if got != want {
		t.Errorf("extractBetween failed: got %q, want %q", got, want)
	}

	// Test missing start
	got = extractBetween(str, "{sha1}(", ")")
	if got != "" {
		t.Errorf("extractBetween should return empty string if start not found")
	}

	// Test missing end
	got = extractBetween("{sha256}(foo", "{sha256}(", ")")
	if got != "" {
		t.Errorf("extractBetween should return empty string if end not found")
	}
}

func TestSha256Hash(t *testing.T) {
	s := "hello"
	expected := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if sha256Hash(s) != expected {
		t.Errorf("sha256Hash failed: got %q, want %q", sha256Hash(s), expected)
	}
}

func TestSha1Hash(t *testing.T) {
	s := "hello"
	expected := "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	if sha1Hash(s) != expected {
		t.Errorf("sha1Hash failed: got %q, want %q", sha1Hash(s), expected)
	}
}

func TestMd5Hash(t *testing.T) {
	s := "hello"
	expected := "5d41402abc4b2a76b9719d911017c592"
	if md5Hash(s) != expected {
		t.Errorf("md5Hash failed: got %q, want %q", md5Hash(s), expected)
	}
}

func TestApplyHashMacro(t *testing.T) {
	password := "pass"
	user := "bob"
	userSalt := "usalt"
	globalSalt := "gsalt"

	// SHA256
	hash, err := ApplyHashMacro("{sha256}({password}{user}{salt}{globalsalt})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro sha256 failed: %v", err)
	}
	expected := sha256Hash(password + user + userSalt + globalSalt)
	if hash != expected {
		t.Errorf("ApplyHashMacro sha256: got %q, want %q", hash, expected)
	}

	// SHA1
	hash, err = ApplyHashMacro("{sha1}({password}{user})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro sha1 failed: %v", err)
	}
	expected = sha1Hash(password + user)
	if hash != expected {
		t.Errorf("ApplyHashMacro sha1: got %q, want %q", hash, expected)
	}

	// MD5
	hash, err = ApplyHashMacro("{md5}({user}{salt})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro md5 failed: %v", err)
	}
	expected = md5Hash(user + userSalt)
	if hash != expected {
		t.Errorf("ApplyHashMacro md5: got %q, want %q", hash, expected)
	}

	// Clear
	clear, err := ApplyHashMacro("{clear}({password})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro clear failed: %v", err)
	}
	if clear != password {
		t.Errorf("ApplyHashMacro clear: got %q, want %q", clear, password)
	}

	// Unsupported
	_, err = ApplyHashMacro("{unknown}({password})", password, user, userSalt, globalSalt)
	if err == nil {
		t.Error("ApplyHashMacro should fail for unsupported macro")
	}
}

func fileAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	cfg := config.AuthConfig{UserBackend: "file", HashMacro: "{sha256}({salt}{password}{globalsalt})", Salt: "g"}
	hash, _ := ApplyHashMacro(cfg.HashMacro, "secret-pass", "alice", "s1", "g")
	users := &UsersFile{Users: map[string]UserInfo{
		"alice": {Hash: hash, Salt: "s1", Admin: true},
		"eve":   {Hash: hash, Salt: "s1", Disabled: true},
	}}
	a, err := NewAuthenticator(cfg, users, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAuthenticate_FileBackend(t *testing.T) {
	a := fileAuthenticator(t)
	admin, err := a.Authenticate(context.Background(), "alice", "secret-pass")
	if err != nil || !admin {
		t.Errorf("Expected admin login for alice, got admin=%v err=%v", admin, err)
	}
	for _, c := range []struct{ user, pass string }{
		{"alice", "wrong"},
		{"nobody", "secret-pass"},
		{"eve", "secret-pass"},
	} {
		if _, err := a.Authenticate(context.Background(), c.user, c.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s/%s: expected ErrInvalidCredentials, got %v", c.user, c.pass, err)
		}
	}
}

func TestAuthenticate_SQLiteBackend(t *testing.T) {
	db := openSQLite(t)
	for _, stmt := range []string{
		"CREATE TABLE users (name TEXT, hash TEXT, salt TEXT, is_admin INTEGER)",
		"INSERT INTO users VALUES ('dave', '" + md5Hash("s2pw") + "', 's2', 0)",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	a := &Authenticator{
		cfg: config.AuthConfig{
			UserBackend: "sqlite",
			UserRequest: "SELECT hash, salt, is_admin FROM users WHERE name = ? AND ? IS NOT NULL",
			DBHashMacro: "{md5}({salt}{password})",
			DBPassHash:  true,
		},
		db:     db,
		logger: zaptest.NewLogger(t),
	}
	admin, err := a.Authenticate(context.Background(), "dave", "pw")
	if err != nil || admin {
		t.Errorf("Expected non-admin login for dave, got admin=%v err=%v", admin, err)
	}
	if _, err := a.Authenticate(context.Background(), "dave", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Authenticate(context.Background(), "zoe", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestDriverName(t *testing.T) {
	if driverName("sqlite") != "sqlite3" || driverName("postgres") != "postgres" {
		t.Error("unexpected driver mapping")
	}
}

func TestSaveAndLoadUsers(t *testing.T) {
	t.Setenv(utils.RootEnv, t.TempDir())
	uf := &UsersFile{Users: map[string]UserInfo{
		"alice": {Hash: "h", Salt: "s", Access: map[string]map[string][]string{"insercoes": {"Praca": {"SP"}}}},
	}}
	if err := SaveUsers("users.yaml", uf); err != nil {
		t.Fatal(err)
	}
	got, err := LoadUsers("users.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Users["alice"].Access["insercoes"]["Praca"][0] != "SP" {
		t.Errorf("access lost in round trip: %+v", got.Users["alice"])
	}
}

func TestDbToBool(t *testing.T) {
	for v, want := range map[any]bool{true: true, int64(1): true, int64(0): false, "t": true, "0": false} {
		if dbToBool(v) != want {
			t.Errorf("dbToBool(%v) = %v", v, !want)
		}
	}
	if !dbToBool([]uint8("TRUE")) {
		t.Error("dbToBool([]uint8) failed")
	}
}
