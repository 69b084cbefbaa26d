package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/dbd-cli/internal/model"
	"github.com/corpintel/dbd-cli/internal/resilience"
)

const renderedTable = `<table>
<tr><th>รายการ</th><th>2563</th><th>%</th></tr>
<tr><th>รายได้รวม</th><td>6,790,765.26</td><td>-</td></tr>
</table>`

// renderSession simulates a detail page whose table appears only on the
// n-th read.
type renderSession struct {
	renderOn    int
	reads       int
	navigateErr error
}

func (s *renderSession) Navigate(ctx context.Context, url string) error { return s.navigateErr }
func (s *renderSession) CurrentURL(ctx context.Context) (string, error) { return "", nil }

func (s *renderSession) BodyText(ctx context.Context) (string, error) {
	return "ข้อมูลนิติบุคคล ชื่อนิติบุคคล", nil
}

func (s *renderSession) BodyHTML(ctx context.Context) (string, error) {
	s.reads++
	if s.reads >= s.renderOn {
		return renderedTable, nil
	}
	return "<html><body></body></html>", nil
}

func (s *renderSession) ClickText(ctx context.Context, text string) error    { return nil }
func (s *renderSession) EnterPageNumber(ctx context.Context, page int) error { return nil }
func (s *renderSession) Screenshot(ctx context.Context, path string) error   { return nil }
func (s *renderSession) Close() error                                        { return nil }

func resolved(name, reg string) model.ResolutionResult {
	return model.ResolutionResult{
		Company:        model.CompanyInput{Name: name},
		RegistrationID: reg,
		Match:          model.Exact(),
		Strategy:       "1",
	}
}

func testConfig(maxRetries int) Config {
	return Config{
		BaseURL:      "https://example.test",
		MaxRetries:   maxRetries,
		IncomeFields: []string{"รายได้รวม"},
	}
}

func TestExtract_SucceedsOnLaterAttempt(t *testing.T) {
	session := &renderSession{renderOn: 3}
	engine := NewEngine(session, testConfig(3))

	outcome := engine.Extract(context.Background(), resolved("บริษัท สยาม จำกัด", "0105540087110"))

	assert.Equal(t, model.StatusOK, outcome.Status)
	require.Len(t, outcome.Records, 1)
	assert.Equal(t, "รายได้รวม", outcome.Records[0].FieldName)
	assert.Equal(t, "2563", outcome.Records[0].FiscalYear)
	assert.Equal(t, 3, session.reads)
}

func TestExtract_NoDataAfterExhaustingAttempts(t *testing.T) {
	session := &renderSession{renderOn: 3}
	engine := NewEngine(session, testConfig(2))

	outcome := engine.Extract(context.Background(), resolved("บริษัท สยาม จำกัด", "0105540087110"))

	assert.Equal(t, model.StatusNoData, outcome.Status)
	assert.Equal(t, "no financial data", outcome.Reason)
	assert.Empty(t, outcome.Records)
	assert.Equal(t, 2, session.reads)
}

func TestExtract_SingleAttemptFloor(t *testing.T) {
	session := &renderSession{renderOn: 1}
	engine := NewEngine(session, testConfig(0))

	outcome := engine.Extract(context.Background(), resolved("บริษัท สยาม จำกัด", "0105540087110"))

	assert.Equal(t, model.StatusOK, outcome.Status)
	assert.Equal(t, 1, session.reads)
}

func TestExtract_InteractionFailureIsError(t *testing.T) {
	session := &renderSession{
		renderOn:    1,
		navigateErr: resilience.NewTransientError(eris.New("tab crashed")),
	}
	engine := NewEngine(session, testConfig(2))

	outcome := engine.Extract(context.Background(), resolved("บริษัท สยาม จำกัด", "0105540087110"))

	assert.Equal(t, model.StatusError, outcome.Status)
	assert.Contains(t, outcome.Reason, "extraction failed")
}

func TestExtract_UnresolvedCompanyIsError(t *testing.T) {
	engine := NewEngine(&renderSession{}, testConfig(3))

	outcome := engine.Extract(context.Background(), model.ResolutionResult{
		Company: model.CompanyInput{Name: "บริษัท ไม่มีจริง จำกัด"},
		Match:   model.Unresolved(),
		Reason:  "no search results",
	})

	assert.Equal(t, model.StatusError, outcome.Status)
	assert.Equal(t, "no search results", outcome.Reason)
}

func TestExtract_NonTransientFailureStopsRetrying(t *testing.T) {
	session := &renderSession{renderOn: 1, navigateErr: eris.New("permanent failure")}
	engine := NewEngine(session, testConfig(3))

	outcome := engine.Extract(context.Background(), resolved("บริษัท สยาม จำกัด", "0105540087110"))

	assert.Equal(t, model.StatusError, outcome.Status)
	assert.Equal(t, 0, session.reads, "no reads after a failed navigation")
}
