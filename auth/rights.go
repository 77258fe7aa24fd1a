package auth

import "adinsight/dataset"

// CheckRights liste les problèmes d'accès aux colonnes demandées.
// known == nil désactive le contrôle des colonnes inconnues.
func CheckRights(columns []string, known []string, d dataset.Descriptor, isAdmin bool) []string {
	problems := []string{}
	var exists map[string]bool
	if known != nil {
		exists = make(map[string]bool, len(known))
		for _, k := range known {
			exists[k] = true
		}
	}
	for _, col := range columns {
		if exists != nil && !exists[col] {
			problems = append(problems, "column:"+col+":unknown")
			continue
		}
		// Les colonnes réservées ne sont visibles que des administrateurs
		if d.IsReserved(col) && !isAdmin {
			problems = append(problems, "column:"+col+":forbidden")
		}
	}
	return problems
}
