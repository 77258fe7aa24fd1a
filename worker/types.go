package worker

import (
	"time"

	"adinsight/report"
)

// Statuts possibles d’une requête
type ReportStatus string

const (
	StatusWaiting    ReportStatus = "waiting"
	StatusProcessing ReportStatus = "processing"
	StatusComplete   ReportStatus = "complete"
	StatusError      ReportStatus = "error"
	StatusExpired    ReportStatus = "expired"
)

// Stockage d’une requête à traiter
type ReportRequest struct {
	ID        string
	Spec      report.Spec
	Access    report.AccessFilters // filtres imposés par les droits de l'utilisateur
	Owner     string
	Admin     bool
	CreatedAt time.Time
}

// Résultat traité
type ReportResult struct {
	Status     ReportStatus
	Result     *report.Result
	CSVPath    string
	XLSPath    string
	ErrorMsg   string
	Err        error
	Owner      string
	FinishedAt time.Time
}
