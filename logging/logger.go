package logging

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"adinsight/utils"
)

// Logger est un logger zap écrivant des lignes JSON dans un fichier dédié
// (access.log, login.log, report.log...).
type Logger struct {
	*zap.Logger
	path string
}

// NewLogger crée (et ouvre en append) un logger fichier
func NewLogger(dir, fname string, debug bool) (*Logger, error) {
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fname)

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	config.Sampling = nil
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: l.With(zap.String("log", fname)), path: path}, nil
}

// NewLoggerOrDie (pour main.go, pour moins de boilerplate)
func NewLoggerOrDie(dir, fname string, debug bool) *Logger {
	l, err := NewLogger(dir, fname, debug)
	if err != nil {
		panic(err)
	}
	return l
}

// Nop ne logge rien, pour les tests et les outils en ligne de commande.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func (l *Logger) Path() string { return l.path }

// Close vide les buffers
func (l *Logger) Close() {
	_ = l.Sync()
}

// Set regroupe les loggers par usage.
type Set struct {
	API    *Logger
	Access *Logger
	Login  *Logger
	Report *Logger
}

// NewSet ouvre les quatre fichiers de log, les précédents partant dans archives/
func NewSet(dir string, debug bool) (*Set, error) {
	s := &Set{}
	now := time.Now()
	for _, target := range []struct {
		l    **Logger
		name string
	}{
		{&s.API, "api.log"},
		{&s.Access, "access.log"},
		{&s.Login, "login.log"},
		{&s.Report, "report.log"},
	} {
		if err := utils.ArchiveLog(dir, target.name, now); err != nil {
			return nil, err
		}
		l, err := NewLogger(dir, target.name, debug)
		if err != nil {
			return nil, err
		}
		*target.l = l
	}
	return s, nil
}

func NopSet() *Set {
	return &Set{API: Nop(), Access: Nop(), Login: Nop(), Report: Nop()}
}

func (s *Set) Close() {
	for _, l := range []*Logger{s.API, s.Access, s.Login, s.Report} {
		if l != nil {
			l.Close()
		}
	}
}
