package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presswork/internal/cms"
	"presswork/internal/metrics"
	"presswork/internal/provider"
)

// fakeDisplay records browser interactions without a browser.
type fakeDisplay struct {
	navigated []string
	typed     []string
	keys      []string
	uploads   []string
	clicks    int
	scrolls   int
	shots     int
	cookies   []cms.Cookie
	closed    bool
}

func (d *fakeDisplay) Navigate(ctx context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDisplay) Screenshot(ctx context.Context) ([]byte, error) {
	d.shots++
	return []byte("png-bytes"), nil
}

func (d *fakeDisplay) Click(ctx context.Context, x, y float64) error {
	d.clicks++
	return nil
}

func (d *fakeDisplay) Type(ctx context.Context, text string) error {
	d.typed = append(d.typed, text)
	return nil
}

func (d *fakeDisplay) PressKey(ctx context.Context, key string) error {
	d.keys = append(d.keys, key)
	return nil
}

func (d *fakeDisplay) Scroll(ctx context.Context, dx, dy float64) error {
	d.scrolls++
	return nil
}

func (d *fakeDisplay) Upload(ctx context.Context, path string) error {
	d.uploads = append(d.uploads, path)
	return nil
}

func (d *fakeDisplay) Cookies(ctx context.Context) ([]cms.Cookie, error) {
	return d.cookies, nil
}

func (d *fakeDisplay) SetCookies(ctx context.Context, cookies []cms.Cookie) error {
	d.cookies = append(d.cookies, cookies...)
	return nil
}

func (d *fakeDisplay) Close(ctx context.Context) error {
	d.closed = true
	return nil
}

type modelStep struct {
	t   *turn
	err error
}

// fakeModel replays a script of turns and keeps every request it saw.
type fakeModel struct {
	script []modelStep
	calls  int
	params []anthropic.MessageNewParams
}

func (m *fakeModel) converse(ctx context.Context, p anthropic.MessageNewParams) (*turn, error) {
	m.params = append(m.params, p)
	i := m.calls
	m.calls++
	if i < len(m.script) {
		return m.script[i].t, m.script[i].err
	}
	return turnOf(call(toolDone, `{"success":true}`)), nil
}

// transcript renders every message the model saw as one string, for
// leak assertions.
func (m *fakeModel) transcript(t *testing.T) string {
	t.Helper()
	var out string
	for _, p := range m.params {
		b, err := json.Marshal(p.Messages)
		require.NoError(t, err)
		out += string(b)
	}
	return out
}

var callSeq int

func call(name, input string) toolCall {
	callSeq++
	return toolCall{id: fmt.Sprintf("call-%d", callSeq), name: name, input: json.RawMessage(input)}
}

func turnOf(calls ...toolCall) *turn {
	return &turn{calls: calls, tokens: 10}
}

type costRecord struct {
	provider string
	op       string
	dollars  float64
}

type fakeCosts struct {
	records []costRecord
}

func (c *fakeCosts) AddCost(providerName, opKind string, dollars float64) {
	c.records = append(c.records, costRecord{providerName, opKind, dollars})
}

func newTestProvider(t *testing.T, model *fakeModel, mutate func(*Config)) (*Provider, *fakeDisplay) {
	t.Helper()

	disp := &fakeDisplay{}
	cfg := Config{
		Model:           "test-model",
		APIKey:          "test-key",
		MaxIterations:   6,
		MaxTokensPerRun: 150000,
		URLCheck:        func(ctx context.Context, url string) error { return nil },
	}
	if mutate != nil {
		mutate(&cfg)
	}

	p := New(cfg)
	p.newDisplay = func(Config) (display, error) { return disp, nil }
	p.newModel = func(Config) chatModel { return model }

	sess := &cms.Session{
		Target: cms.TargetCMS{URL: "https://blog.example.com", Kind: cms.KindWordPress},
	}
	require.NoError(t, p.Initialize(context.Background(), sess))
	return p, disp
}

func TestInitializeRequiresAPIKey(t *testing.T) {
	p := New(Config{})
	p.newDisplay = func(Config) (display, error) { return &fakeDisplay{}, nil }

	sess := &cms.Session{
		Target: cms.TargetCMS{URL: "https://blog.example.com", Kind: cms.KindWordPress},
	}
	err := p.Initialize(context.Background(), sess)
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrConfigInvalid, pe.Kind)
	assert.False(t, pe.Transient)
}

func TestLoginSubstitutesCredentialsOutsideTranscript(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(
			call(toolClick, `{"x":640,"y":300}`),
			call(toolTypeText, `{"text":"","field":"username"}`),
			call(toolTypeText, `{"text":"","field":"password"}`),
			call(toolPressKey, `{"key":"enter"}`),
		)},
		{t: turnOf(call(toolDone, `{"success":true}`))},
	}}
	p, disp := newTestProvider(t, model, nil)

	creds := cms.Credentials{Username: "edwina-marchbanks", Password: "hunter2-nine-lives"}
	require.NoError(t, p.Login(context.Background(), creds))

	assert.Equal(t, []string{"edwina-marchbanks", "hunter2-nine-lives"}, disp.typed)
	assert.Equal(t, []string{"enter"}, disp.keys)

	transcript := model.transcript(t)
	assert.NotContains(t, transcript, "hunter2-nine-lives")
	assert.NotContains(t, transcript, "edwina-marchbanks")
}

func TestLoginFailureIsAuthRejected(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolDone, `{"success":false,"reason":"login form rejected the credentials"}`))},
	}}
	p, _ := newTestProvider(t, model, nil)

	err := p.Login(context.Background(), cms.Credentials{Username: "editor", Password: "pw"})
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrAuthRejected, pe.Kind)
	assert.False(t, pe.Transient)
	assert.Contains(t, pe.Message, "rejected")
}

func TestRunStopsAtIterationBudget(t *testing.T) {
	var script []modelStep
	for i := 0; i < 10; i++ {
		script = append(script, modelStep{t: turnOf(call(toolClick, `{"x":1,"y":1}`))})
	}
	model := &fakeModel{script: script}
	p, _ := newTestProvider(t, model, func(c *Config) { c.MaxIterations = 3 })

	err := p.SetTitle(context.Background(), "Spilled Ink")
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrTimeout, pe.Kind)
	assert.True(t, pe.Transient)
	assert.Equal(t, 3, model.calls)
}

func TestRunStopsAtTokenBudget(t *testing.T) {
	var script []modelStep
	for i := 0; i < 10; i++ {
		script = append(script, modelStep{t: &turn{
			calls:  []toolCall{call(toolClick, `{"x":1,"y":1}`)},
			tokens: 60,
		}})
	}
	model := &fakeModel{script: script}
	p, _ := newTestProvider(t, model, func(c *Config) { c.MaxTokensPerRun = 100 })

	err := p.SetTitle(context.Background(), "Spilled Ink")
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrTimeout, pe.Kind)
	assert.False(t, pe.Transient, "a spent run budget cannot clear on retry")
	assert.Contains(t, pe.Message, "token budget")
	assert.Equal(t, 2, model.calls)
}

func TestRunFailsWhenModelStopsWithoutDone(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: &turn{stop: "end_turn", tokens: 10}},
	}}
	p, _ := newTestProvider(t, model, nil)

	err := p.SetTitle(context.Background(), "Spilled Ink")
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrElementNotFound, pe.Kind)
	assert.True(t, pe.Transient)
	assert.Contains(t, pe.Message, "stopped without completing")
	assert.Equal(t, 1, model.calls)
}

func TestVerifyDraftReadsReport(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(
			call(toolReport, `{"draft":true,"saved":true}`),
			call(toolDone, `{"success":true}`),
		)},
	}}
	p, _ := newTestProvider(t, model, nil)

	draft, err := p.VerifyDraftStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, draft)
}

func TestVerifyDraftWithoutReportFails(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolDone, `{"success":true}`))},
	}}
	p, _ := newTestProvider(t, model, nil)

	_, err := p.VerifyDraftStatus(context.Background())
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrElementNotFound, pe.Kind)
	assert.True(t, pe.Transient)
}

func TestSetSEOMissingPluginIsWarningKind(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolDone, `{"success":false,"reason":"seo_plugin_missing"}`))},
	}}
	p, _ := newTestProvider(t, model, nil)

	err := p.SetSEO(context.Background(), cms.SEO{MetaTitle: "Spilled Ink"})
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrSEOPluginMissing, pe.Kind)
	assert.False(t, pe.Transient)
}

func TestSetSEOEmptySkipsModel(t *testing.T) {
	model := &fakeModel{}
	p, _ := newTestProvider(t, model, nil)

	require.NoError(t, p.SetSEO(context.Background(), cms.SEO{}))
	assert.Zero(t, model.calls)
}

func TestInstructionCostIsAccounted(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolScreenshot, `{}`))},
		{t: turnOf(call(toolDone, `{"success":true}`))},
	}}
	costs := &fakeCosts{}
	p, _ := newTestProvider(t, model, func(c *Config) { c.Costs = costs })

	require.NoError(t, p.SetTitle(context.Background(), "Spilled Ink"))

	require.Len(t, costs.records, 1)
	rec := costs.records[0]
	assert.Equal(t, ProviderName, rec.provider)
	assert.Equal(t, metrics.CostOpInstruction, rec.op)

	// Two screenshots entered the conversation (the opener plus one the
	// model asked for) across twenty tokens.
	want := metrics.DefaultCostEstimator().EstimateVision(2, 20)
	assert.InDelta(t, want, rec.dollars, 1e-9)
}

func TestModelBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var script []modelStep
	for i := 0; i < 10; i++ {
		script = append(script, modelStep{err: errors.New("api down")})
	}
	model := &fakeModel{script: script}
	p, _ := newTestProvider(t, model, nil)

	for i := 0; i < 3; i++ {
		err := p.SetTitle(context.Background(), "Spilled Ink")
		require.Error(t, err)
		assert.True(t, provider.IsTransient(err))
	}
	assert.Equal(t, 3, model.calls)

	err := p.SetTitle(context.Background(), "Spilled Ink")
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Contains(t, pe.Message, "circuit open")
	assert.Equal(t, 3, model.calls, "open breaker must not reach the model")
}

func TestInsertImagesStagesFilesInPositionOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.png")
	second := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(first, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o644))

	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolUploadFile, `{}`), call(toolDone, `{"success":true}`))},
		{t: turnOf(call(toolUploadFile, `{}`), call(toolDone, `{"success":true}`))},
	}}
	p, disp := newTestProvider(t, model, nil)

	images := []cms.Image{
		{Source: second, Position: 4},
		{Source: first, Position: 1},
	}
	require.NoError(t, p.InsertImages(context.Background(), images))

	assert.Equal(t, []string{first, second}, disp.uploads)
}

func TestInsertImagesStagesWithRequestedFilename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tmp-98127364.png")
	require.NoError(t, os.WriteFile(src, []byte("img"), 0o644))

	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolUploadFile, `{}`), call(toolDone, `{"success":true}`))},
	}}
	p, disp := newTestProvider(t, model, nil)

	err := p.InsertImages(context.Background(), []cms.Image{
		{Source: src, Filename: "hero-shot.png", Position: 1},
	})
	require.NoError(t, err)

	require.Len(t, disp.uploads, 1)
	assert.Equal(t, "hero-shot.png", filepath.Base(disp.uploads[0]))
}

func TestSetAuthorRendersName(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolDone, `{"success":true}`))},
	}}
	p, _ := newTestProvider(t, model, nil)

	require.NoError(t, p.SetAuthor(context.Background(), "Dana Reyes"))
	assert.Contains(t, model.transcript(t), "Dana Reyes")
}

func TestSetAuthorUnavailableIsFatal(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolDone, `{"success":false,"reason":"author_not_available"}`))},
	}}
	p, _ := newTestProvider(t, model, nil)

	err := p.SetAuthor(context.Background(), "Ghost Writer")
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrElementNotFound, pe.Kind)
	assert.False(t, pe.Transient)
}

func TestUploadWithoutStagedFileReportsToolError(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolUploadFile, `{}`))},
		{t: turnOf(call(toolDone, `{"success":true}`))},
	}}
	p, disp := newTestProvider(t, model, nil)

	require.NoError(t, p.SetTitle(context.Background(), "Spilled Ink"))

	assert.Empty(t, disp.uploads)
	assert.Contains(t, model.transcript(t), "no file staged")
}

func TestPublishedURLChecksReachability(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(
			call(toolReport, `{"url":"https://blog.example.com/spilled-ink"}`),
			call(toolDone, `{"success":true}`),
		)},
	}}
	var checked string
	p, _ := newTestProvider(t, model, func(c *Config) {
		c.URLCheck = func(ctx context.Context, url string) error {
			checked = url
			return nil
		}
	})

	url, err := p.PublishedURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/spilled-ink", url)
	assert.Equal(t, url, checked)
}

func TestPublishedURLUnreachableIsTransient(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(
			call(toolReport, `{"url":"https://blog.example.com/spilled-ink"}`),
			call(toolDone, `{"success":true}`),
		)},
	}}
	p, _ := newTestProvider(t, model, func(c *Config) {
		c.URLCheck = func(ctx context.Context, url string) error { return errors.New("503") }
	})

	_, err := p.PublishedURL(context.Background())
	require.Error(t, err)

	pe := provider.AsError(err)
	require.NotNil(t, pe)
	assert.Equal(t, cms.ErrNavigationTimeout, pe.Kind)
	assert.True(t, pe.Transient)
}

func TestCurrentPostIDEmptyIsNotError(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(
			call(toolReport, `{"post_id":""}`),
			call(toolDone, `{"success":true}`),
		)},
	}}
	p, _ := newTestProvider(t, model, nil)

	id, err := p.CurrentPostID(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestScreenshotToolFeedsImageBack(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolScreenshot, `{}`))},
		{t: turnOf(call(toolDone, `{"success":true}`))},
	}}
	p, disp := newTestProvider(t, model, nil)

	require.NoError(t, p.SetTitle(context.Background(), "Spilled Ink"))

	// One screenshot opens the run, the second answers the tool call.
	assert.Equal(t, 2, disp.shots)
	require.Len(t, model.params, 2)
	assert.Contains(t, model.transcript(t), "screenshot attached")
}

func TestScheduleFormatsTimestamp(t *testing.T) {
	model := &fakeModel{script: []modelStep{
		{t: turnOf(call(toolDone, `{"success":true}`))},
	}}
	p, _ := newTestProvider(t, model, nil)

	at := time.Date(2026, time.September, 3, 7, 5, 0, 0, time.UTC)
	require.NoError(t, p.Schedule(context.Background(), at))

	require.Len(t, model.params, 1)
	b, err := json.Marshal(model.params[0].Messages)
	require.NoError(t, err)
	assert.Contains(t, string(b), "2026-09-03 07:05")
}

func TestCloseIsIdempotent(t *testing.T) {
	model := &fakeModel{}
	p, disp := newTestProvider(t, model, nil)

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, disp.closed)
	require.NoError(t, p.Close(context.Background()))
}
