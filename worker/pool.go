package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"adinsight/dataset"
	"adinsight/report"
)

var ErrUnknownRequest = errors.New("unknown report request")

// Runner builds a report, normally a *report.Service.
type Runner interface {
	Run(ctx context.Context, spec report.Spec, access report.AccessFilters) (*report.Result, error)
}

// Pool est la file FIFO des rapports et ses N workers. Les fichiers produits
// vont dans <out>/csv/<id>.csv et <out>/xls/<id>.xlsx.
type Pool struct {
	runner Runner
	outDir string
	maxAge time.Duration
	logger *zap.Logger
	now    func() time.Time

	pendingMutex sync.Mutex
	pendingOrder []string
	pending      map[string]*ReportRequest
	results      map[string]*ReportResult
	wake         chan struct{}
	wg           sync.WaitGroup
}

func NewPool(runner Runner, outDir string, maxAge time.Duration, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		runner:  runner,
		outDir:  outDir,
		maxAge:  maxAge,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]*ReportRequest),
		results: make(map[string]*ReportResult),
		wake:    make(chan struct{}, 1),
	}
}

func (p *Pool) CSVPath(id string) string { return filepath.Join(p.outDir, "csv", id+".csv") }
func (p *Pool) XLSPath(id string) string { return filepath.Join(p.outDir, "xls", id+".xlsx") }

// Ajoute une requête dans la file FIFO
func (p *Pool) Submit(req *ReportRequest) {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = p.now()
	}
	p.pendingMutex.Lock()
	p.pending[req.ID] = req
	p.pendingOrder = append(p.pendingOrder, req.ID)
	p.results[req.ID] = &ReportResult{Status: StatusWaiting, Owner: req.Owner}
	p.pendingMutex.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Récupère puis supprime la plus ancienne requête FIFO (nil si aucune)
func (p *Pool) next() *ReportRequest {
	p.pendingMutex.Lock()
	defer p.pendingMutex.Unlock()
	for len(p.pendingOrder) > 0 {
		id := p.pendingOrder[0]
		p.pendingOrder = p.pendingOrder[1:]
		if req, ok := p.pending[id]; ok {
			delete(p.pending, id)
			p.results[id] = &ReportResult{Status: StatusProcessing, Owner: req.Owner}
			return req
		}
	}
	return nil
}

// Status returns a copy of the current state of id.
func (p *Pool) Status(id string) (ReportResult, error) {
	p.pendingMutex.Lock()
	defer p.pendingMutex.Unlock()
	r, ok := p.results[id]
	if !ok {
		return ReportResult{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	return *r, nil
}

func (p *Pool) setResult(id string, r *ReportResult) {
	p.pendingMutex.Lock()
	p.results[id] = r
	p.pendingMutex.Unlock()
}

// Start lance n workers et le nettoyage des vieux résultats; ils s'arrêtent avec ctx.
func (p *Pool) Start(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.work(ctx)
		}()
	}
	if p.maxAge > 0 {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.janitor(ctx, janitorInterval(p.maxAge))
		}()
	}
}

// Wait blocks until every goroutine started by Start has returned.
func (p *Pool) Wait() { p.wg.Wait() }

// Un worker traite une requête à la fois, dès qu’il en trouve une dans la file FIFO
func (p *Pool) work(ctx context.Context) {
	for {
		req := p.next()
		if req == nil {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
			case <-time.After(300 * time.Millisecond):
			}
			continue
		}
		p.setResult(req.ID, p.Process(ctx, req))
		// un autre worker attend peut-être la suite de la file
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

// Process builds one report and writes its files.
func (p *Pool) Process(ctx context.Context, req *ReportRequest) *ReportResult {
	log := p.logger.With(zap.String("id", req.ID), zap.String("owner", req.Owner), zap.String("report", string(req.Spec.Kind())))
	log.Info("report started")
	started := p.now()

	res, err := p.runner.Run(ctx, req.Spec, req.Access)
	if err != nil {
		log.Warn("report failed", zap.Error(err))
		return &ReportResult{Status: StatusError, ErrorMsg: errorMessage(err), Err: err, Owner: req.Owner, FinishedAt: p.now()}
	}
	out := &ReportResult{Status: StatusComplete, Result: res, Owner: req.Owner, CSVPath: p.CSVPath(req.ID), XLSPath: p.XLSPath(req.ID)}
	if err := writeFile(out.CSVPath, func(w io.Writer) error { return report.WriteCSV(w, res) }); err != nil {
		log.Error("write csv", zap.Error(err))
		return &ReportResult{Status: StatusError, ErrorMsg: "Não foi possível gravar o arquivo CSV", Err: err, Owner: req.Owner, FinishedAt: p.now()}
	}
	if err := writeFile(out.XLSPath, func(w io.Writer) error { return report.WriteXLSX(w, res) }); err != nil {
		log.Error("write xlsx", zap.Error(err))
		return &ReportResult{Status: StatusError, ErrorMsg: "Não foi possível gravar o arquivo Excel", Err: err, Owner: req.Owner, FinishedAt: p.now()}
	}
	out.FinishedAt = p.now()
	log.Info("report complete",
		zap.Duration("elapsed", out.FinishedAt.Sub(started)),
		zap.Bool("empty", res.Empty),
		zap.Bool("stale", res.Stale),
		zap.String("csv", out.CSVPath),
	)
	return out
}

// errorMessage est le texte montré au client: jamais le détail interne d'un décodage.
func errorMessage(err error) string {
	var decodeErr *dataset.DecodeError
	switch {
	case errors.Is(err, dataset.ErrDataUnavailable):
		return "Dados indisponíveis no momento, tente novamente mais tarde"
	case errors.As(err, &decodeErr):
		return "Arquivo de dados inválido"
	case errors.Is(err, report.ErrInvalidParams), errors.Is(err, report.ErrMissingColumn):
		return err.Error()
	}
	return "Erro ao gerar o relatório"
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func janitorInterval(maxAge time.Duration) time.Duration {
	if d := maxAge / 4; d < time.Hour {
		if d < time.Second {
			return time.Second
		}
		return d
	}
	return time.Hour
}

func (p *Pool) janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Expire()
		}
	}
}

// Expire supprime les fichiers des rapports terminés depuis plus de maxAge.
func (p *Pool) Expire() int {
	if p.maxAge <= 0 {
		return 0
	}
	cutoff := p.now().Add(-p.maxAge)
	var expired []*ReportResult
	p.pendingMutex.Lock()
	for id, r := range p.results {
		if r.FinishedAt.IsZero() || r.FinishedAt.After(cutoff) || r.Status == StatusExpired {
			continue
		}
		expired = append(expired, r)
		p.results[id] = &ReportResult{Status: StatusExpired, Owner: r.Owner, FinishedAt: r.FinishedAt}
	}
	p.pendingMutex.Unlock()

	for _, r := range expired {
		for _, path := range []string{r.CSVPath, r.XLSPath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				p.logger.Warn("remove expired report", zap.String("path", path), zap.Error(err))
			}
		}
	}
	if len(expired) > 0 {
		p.logger.Info("reports expired", zap.Int("count", len(expired)))
	}
	return len(expired)
}
