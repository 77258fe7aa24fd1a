package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func makeTestUsersFile() *UsersFile {
	return &UsersFile{
		Users: map[string]UserInfo{
			"alice": {
				Admin: false,
				Access: map[string]map[string][]string{
					"insercoes": {
						"Praca":    {"SP", "RJ"},
						"Emissora": {"A"},
					},
				},
			},
			"bob": {
				Admin: true,
			},
		},
	}
}

func TestGetAccessFilters_AdminReturnsNil(t *testing.T) {
	filters, err := GetAccessFilters(context.Background(), "bob", true, makeDescriptor(), makeTestUsersFile(), nil)
	if err != nil || filters != nil {
		t.Errorf("Expected nil for admin user, got %v (%v)", filters, err)
	}
}

func TestGetAccessFilters_FileBackend(t *testing.T) {
	filters, err := GetAccessFilters(context.Background(), "alice", false, makeDescriptor(), makeTestUsersFile(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(filters) != 2 {
		t.Errorf("Expected 2 filters for alice, got %v", filters)
	}
	if v, ok := filters["Praca"]; !ok || len(v) != 2 {
		t.Errorf("Expected Praca filter with 2 values, got %v", v)
	}
	if v, ok := filters["Emissora"]; !ok || len(v) != 1 || v[0] != "A" {
		t.Errorf("Expected Emissora filter with value A, got %v", v)
	}
}

func TestGetAccessFilters_NoAccessInUsersFile(t *testing.T) {
	filters, err := GetAccessFilters(context.Background(), "unknown", false, makeDescriptor(), makeTestUsersFile(), nil)
	if err != nil || len(filters) != 0 {
		t.Errorf("Expected no filters for unknown user, got %v (%v)", filters, err)
	}
}

func TestGetAccessFilters_OtherDataset(t *testing.T) {
	d := makeDescriptor()
	d.Key = "vendas"
	filters, err := GetAccessFilters(context.Background(), "alice", false, d, makeTestUsersFile(), nil)
	if err != nil || len(filters) != 0 {
		t.Errorf("Expected no filters for another dataset, got %v (%v)", filters, err)
	}
}

// openSQLite ouvre une base sqlite temporaire, ou saute le test sans cgo.
func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetAccessFilters_AccessQuery(t *testing.T) {
	db := openSQLite(t)
	for _, stmt := range []string{
		"CREATE TABLE access (user TEXT, praca TEXT)",
		"INSERT INTO access VALUES ('carol', 'BH'), ('carol', 'SP'), ('dave', 'RJ')",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	d := makeDescriptor()
	d.AccessQueries = map[string]string{
		"Praca":    "SELECT praca FROM access WHERE user = ? ORDER BY praca",
		"Emissora": "SELECT praca FROM access WHERE user = ? AND 0",
	}

	filters, err := GetAccessFilters(context.Background(), "carol", false, d, makeTestUsersFile(), db)
	if err != nil {
		t.Fatal(err)
	}
	if v := filters["Praca"]; len(v) != 2 || v[0] != "BH" || v[1] != "SP" {
		t.Errorf("Expected Praca [BH SP], got %v", v)
	}
	// requête sans résultat: la colonne reste filtrée, sans aucune valeur
	if v, ok := filters["Emissora"]; !ok || len(v) != 0 {
		t.Errorf("Expected an empty Emissora filter, got %v (present=%v)", v, ok)
	}

	// users.yaml a priorité sur la requête
	filters, err = GetAccessFilters(context.Background(), "alice", false, d, makeTestUsersFile(), db)
	if err != nil {
		t.Fatal(err)
	}
	if v := filters["Praca"]; len(v) != 2 || v[0] != "SP" {
		t.Errorf("Expected Praca from users.yaml, got %v", v)
	}
}
