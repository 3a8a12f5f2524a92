// Package cron drives the named ingestion jobs: it resolves call parameters,
// invokes the service's own ingestion endpoint, classifies the outcome, and
// always journals exactly one entry per run.
package cron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"funfeed/internal/harvest"
	"funfeed/internal/journal"
	"funfeed/internal/keywords"
	"funfeed/internal/model"
)

// NightlyJob is the composite job running every single job in fixed order.
const NightlyJob = "nightly"

type jobSpec struct {
	ctype      model.ContentType
	queryCount int
	perPage    int
	pages      int
	days       int
}

var jobSpecs = map[string]jobSpec{
	"images": {ctype: model.TypeImage, queryCount: 3, perPage: 20, pages: 1},
	"videos": {ctype: model.TypeVideo, queryCount: 2, perPage: 25, pages: 1, days: 30},
	"quotes": {ctype: model.TypeQuote, queryCount: 2, perPage: 20, pages: 1},
	"jokes":  {ctype: model.TypeJoke, queryCount: 2, perPage: 10, pages: 1},
	"facts":  {ctype: model.TypeFact, queryCount: 3, perPage: 5, pages: 1},
	"web":    {ctype: model.TypeWeb, queryCount: 3, perPage: 20, pages: 1, days: 7},
}

// nightlyOrder fixes the sequential child order of the composite job.
var nightlyOrder = []string{"images", "videos", "quotes", "jokes", "facts", "web"}

// JobNames returns every invocable job name, nightly last.
func JobNames() []string {
	return append(append([]string{}, nightlyOrder...), NightlyJob)
}

// RunOutcome is the structured result handed back to the caller of a job.
type RunOutcome struct {
	Job     string            `json:"job"`
	OK      bool              `json:"ok"`
	Status  model.RunStatus   `json:"status"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Orchestrator runs named jobs against the service's ingestion endpoint.
type Orchestrator struct {
	secret  string
	baseURL string
	client  harvest.HTTPClient
	journal *journal.Writer
	dict    *keywords.Cache
	rng     *rand.Rand
	log     *slog.Logger
	timeout time.Duration
}

// New creates an Orchestrator. baseURL may be empty; the inbound request's
// address is then used per run.
func New(secret, baseURL string, client harvest.HTTPClient, jw *journal.Writer,
	dict *keywords.Cache, rng *rand.Rand, timeout time.Duration, log *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Orchestrator{
		secret:  secret,
		baseURL: baseURL,
		client:  client,
		journal: jw,
		dict:    dict,
		rng:     rng,
		log:     log,
		timeout: timeout,
	}
}

// Run executes one named job. Whatever happens downstream, exactly one
// journal entry is written before Run returns, and the returned outcome is
// always structured.
func (o *Orchestrator) Run(ctx context.Context, name string, trigger model.TriggerSource, inboundBase string) *RunOutcome {
	if name == NightlyJob {
		return o.runNightly(ctx, trigger, inboundBase)
	}
	return o.runSingle(ctx, name, trigger, inboundBase)
}

func (o *Orchestrator) runSingle(ctx context.Context, name string, trigger model.TriggerSource, inboundBase string) *RunOutcome {
	started := time.Now().UTC()
	outcome := o.callIngest(ctx, name, inboundBase)
	o.record(ctx, name, trigger, started, outcome)
	return outcome
}

func (o *Orchestrator) runNightly(ctx context.Context, trigger model.TriggerSource, inboundBase string) *RunOutcome {
	started := time.Now().UTC()
	outcome := &RunOutcome{Job: NightlyJob, OK: true, Details: make(map[string]string, len(nightlyOrder))}

	// Children run strictly sequentially so the composite outcome reflects a
	// total ordering.
	for _, child := range nightlyOrder {
		res := o.runSingle(ctx, child, trigger, inboundBase)
		outcome.Details[child] = string(res.Status)
		if !res.OK {
			outcome.OK = false
			if outcome.Error == "" {
				outcome.Error = fmt.Sprintf("child %s failed: %s", child, res.Error)
			}
		}
	}

	outcome.Status = model.RunSuccess
	if !outcome.OK {
		outcome.Status = model.RunFailure
	}
	o.record(ctx, NightlyJob, trigger, started, outcome)
	return outcome
}

// ingestResponse mirrors the ingestion endpoint's JSON contract.
type ingestResponse struct {
	OK       bool   `json:"ok"`
	Scanned  int    `json:"scanned"`
	Unique   int    `json:"unique"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Error    string `json:"error"`
}

type ingestRequest struct {
	Queries []string `json:"queries,omitempty"`
	PerPage int      `json:"per,omitempty"`
	Pages   int      `json:"pages,omitempty"`
	Days    int      `json:"days,omitempty"`
}

func (o *Orchestrator) callIngest(ctx context.Context, name, inboundBase string) *RunOutcome {
	outcome := &RunOutcome{Job: name, Status: model.RunFailure, Details: map[string]string{}}

	spec, ok := jobSpecs[name]
	if !ok {
		outcome.Error = fmt.Sprintf("unknown job %q (valid: %s)", name, strings.Join(JobNames(), ", "))
		return outcome
	}
	if o.secret == "" {
		outcome.Error = "cron secret not configured"
		return outcome
	}
	base := o.baseURL
	if base == "" {
		base = inboundBase
	}
	if base == "" {
		outcome.Error = "no base URL available"
		return outcome
	}

	payload, err := json.Marshal(ingestRequest{
		Queries: o.pickQueries(spec.queryCount),
		PerPage: spec.perPage,
		Pages:   spec.pages,
		Days:    spec.days,
	})
	if err != nil {
		outcome.Error = fmt.Sprintf("encode request: %v", err)
		return outcome
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/ingest/%s?secret=%s", base, spec.ctype, url.QueryEscape(o.secret))
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		outcome.Error = fmt.Sprintf("create request: %v", err)
		return outcome
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		outcome.Error = fmt.Sprintf("call ingest: %v", err)
		return outcome
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		outcome.Error = fmt.Sprintf("read response: %v", err)
		return outcome
	}

	var ir ingestResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		outcome.Error = fmt.Sprintf("decode response: %v", err)
		return outcome
	}

	outcome.Details["scanned"] = strconv.Itoa(ir.Scanned)
	outcome.Details["unique"] = strconv.Itoa(ir.Unique)
	outcome.Details["inserted"] = strconv.Itoa(ir.Inserted)
	outcome.Details["updated"] = strconv.Itoa(ir.Updated)

	// Success requires both transport-level and declared success.
	switch {
	case resp.StatusCode != http.StatusOK:
		outcome.Error = fmt.Sprintf("ingest returned status %d", resp.StatusCode)
		if ir.Error != "" {
			outcome.Error = ir.Error
		}
	case !ir.OK || ir.Error != "":
		outcome.Error = ir.Error
		if outcome.Error == "" {
			outcome.Error = "ingest reported not ok"
		}
	default:
		outcome.OK = true
		outcome.Status = model.RunSuccess
	}
	return outcome
}

// pickQueries synthesizes a pool and randomly keeps n of it.
func (o *Orchestrator) pickQueries(n int) []string {
	dict, err := o.dict.Get()
	if err != nil {
		o.log.Warn("keyword dictionary unavailable for cron run", "error", err)
		dict = nil
	}
	pool := keywords.Synthesize(dict, n*2, o.rng)
	o.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool
}

func (o *Orchestrator) record(ctx context.Context, name string, trigger model.TriggerSource, started time.Time, outcome *RunOutcome) {
	entry := &model.CronRunEntry{
		Name:        name,
		Status:      outcome.Status,
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
		TriggeredBy: trigger,
		Details:     outcome.Details,
		Error:       outcome.Error,
	}
	o.journal.Record(ctx, entry)
}
