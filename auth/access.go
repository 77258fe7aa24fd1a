package auth

import (
	"context"
	"database/sql"
	"sort"

	"adinsight/dataset"
)

// GetAccessFilters renvoie, pour un non-admin, les valeurs autorisées par colonne
// du dataset: users.yaml d'abord, sinon la requête access_queries du descripteur.
func GetAccessFilters(ctx context.Context, username string, isAdmin bool, d dataset.Descriptor, users *UsersFile, db *sql.DB) (map[string][]string, error) {
	if isAdmin {
		return nil, nil
	}
	result := map[string][]string{}

	var fromFile map[string][]string
	if users != nil {
		if userInfo, ok := users.Users[username]; ok {
			fromFile = userInfo.Access[d.Key]
		}
	}
	columns := make([]string, 0, len(fromFile)+len(d.AccessQueries))
	for col := range fromFile {
		columns = append(columns, col)
	}
	for col := range d.AccessQueries {
		if _, dup := fromFile[col]; !dup {
			columns = append(columns, col)
		}
	}
	sort.Strings(columns)

	for _, col := range columns {
		// 1. Vérifie dans users.yaml
		values := append([]string(nil), fromFile[col]...)

		// 2. Sinon, vérifie via access_query; aucune ligne = aucune valeur visible
		if len(values) == 0 && db != nil && d.AccessQueries[col] != "" {
			var err error
			values, err = queryValues(ctx, db, d.AccessQueries[col], username)
			if err != nil {
				return nil, err
			}
			result[col] = append([]string{}, values...)
			continue
		}
		if len(values) > 0 {
			result[col] = values
		}
	}
	return result, nil
}

func queryValues(ctx context.Context, db *sql.DB, query, username string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		values = append(values, val)
	}
	return values, rows.Err()
}
