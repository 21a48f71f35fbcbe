package sale

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/huandu/go-sqlbuilder"

	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/database"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/metrics"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

// PushdownScorer evaluates the relevance weight table inside the store query.
// It returns the same scores and reasons as matching.MemoryScorer over the same rows.
type PushdownScorer struct {
	repo  *Repository
	clock matching.Clock
}

// NewPushdownScorer creates a scorer over the sales of repo
func NewPushdownScorer(repo *Repository, clock matching.Clock) *PushdownScorer {
	if clock == nil {
		clock = matching.SystemClock
	}
	return &PushdownScorer{repo: repo, clock: clock}
}

type scoredRow struct {
	saleRow
	PhoneMatch  int     `db:"phone_m"`
	EmailMatch  int     `db:"email_m"`
	NamePrefix  int     `db:"name_prefix"`
	EmailPrefix int     `db:"email_prefix"`
	IsActive    int     `db:"is_active"`
	HasEmail    int     `db:"has_email"`
	HasPhone    int     `db:"has_phone"`
	Recency     float64 `db:"recency"`
	NameCodes   string  `db:"name_codes"`
	EmailCodes  string  `db:"email_codes"`
	CityCodes   string  `db:"city_codes"`
	StateCodes  string  `db:"state_codes"`
	Score       int     `db:"relevance_score"`
}

// Score runs the scoring query and keeps rows with score >= minScore
func (s *PushdownScorer) Score(ctx context.Context, q classifier.Query, minScore int) ([]models.ScoredCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "sale.PushdownScorer.Score")
	defer span.End()

	if q.IsEmpty() {
		return []models.ScoredCandidate{}, nil
	}

	start := time.Now()
	defer func() { metrics.RecordQuery("sale_score", time.Since(start).Seconds()) }()

	query, args := newScoreQuery(s.repo.db.Dialect(), s.repo.builder.Policy(), q, s.clock()).build(minScore)

	var rows []scoredRow
	if err := s.repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.repo.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"query_kind": q.Kind,
		}).Error("Failed to score sales")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to score sales")
	}

	out := make([]models.ScoredCandidate, 0, len(rows))
	for _, row := range rows {
		record := row.record()
		reasons := row.breakdown().Reasons()
		out = append(out, models.NewScoredCandidate(record, s.repo.builder.Build(record), row.Score, reasons))
	}
	return out, nil
}

func (row scoredRow) breakdown() matching.Breakdown {
	return matching.Breakdown{
		Phone:       matching.FieldMatch(row.PhoneMatch),
		Email:       matching.FieldMatch(row.EmailMatch),
		NameTokens:  tokenMatches(row.NameCodes),
		NamePrefix:  row.NamePrefix == 1,
		EmailTokens: tokenMatches(row.EmailCodes),
		EmailPrefix: row.EmailPrefix == 1,
		CityTokens:  flags(row.CityCodes),
		StateTokens: flags(row.StateCodes),
		Active:      row.IsActive == 1,
		HasEmail:    row.HasEmail == 1,
		HasPhone:    row.HasPhone == 1,
		Recency:     row.Recency,
	}
}

func tokenMatches(codes string) []matching.TokenMatch {
	if codes == "" {
		return nil
	}
	out := make([]matching.TokenMatch, len(codes))
	for i := range codes {
		out[i] = matching.TokenMatch(codes[i] - '0')
	}
	return out
}

func flags(codes string) []bool {
	if codes == "" {
		return nil
	}
	out := make([]bool, len(codes))
	for i := range codes {
		out[i] = codes[i] == '1'
	}
	return out
}

// scoreQuery builds the three level scoring statement:
// c computes one match code per rule, s turns the codes into the score and filters it.
type scoreQuery struct {
	dialect database.Dialect
	policy  *matching.ActivePolicy
	q       classifier.Query
	now     int64
}

func newScoreQuery(dialect database.Dialect, policy *matching.ActivePolicy, q classifier.Query, now time.Time) *scoreQuery {
	return &scoreQuery{dialect: dialect, policy: policy, q: q, now: now.Unix()}
}

func (s *scoreQuery) build(minScore int) (string, []any) {
	flavor := s.dialect.Flavor()
	tokens := s.textTokens()

	codes := flavor.NewSelectBuilder()
	cols := append([]string{}, recordColumns...)
	cols = append(cols,
		s.fieldMatch(codes, "full_phone", s.q.IsPhone(), s.q.Digits)+" AS phone_m",
		s.fieldMatch(codes, "email_lower", s.q.IsEmail(), s.q.EmailLower)+" AS email_m",
		s.prefix(codes, "search_name")+" AS name_prefix",
		s.prefix(codes, "search_email")+" AS email_prefix",
		activeExpr(codes, s.policy)+" AS is_active",
		"has_email",
		"has_phone",
		s.recency()+" AS recency",
	)
	for i, token := range tokens {
		cols = append(cols,
			s.tokenMatch(codes, "search_name", token)+fmt.Sprintf(" AS name_t%d", i),
			s.tokenMatch(codes, "search_email", token)+fmt.Sprintf(" AS email_t%d", i),
			s.contains(codes, "search_city", token)+fmt.Sprintf(" AS city_t%d", i),
			s.contains(codes, "search_state", token)+fmt.Sprintf(" AS state_t%d", i),
		)
	}
	codes.Select(cols...)
	codes.From(table)

	scored := flavor.NewSelectBuilder()
	scoredCols := append([]string{}, recordColumns...)
	scoredCols = append(scoredCols,
		"phone_m", "email_m", "name_prefix", "email_prefix", "is_active", "has_email", "has_phone", "recency",
		s.concat("name_t", len(tokens))+" AS name_codes",
		s.concat("email_t", len(tokens))+" AS email_codes",
		s.concat("city_t", len(tokens))+" AS city_codes",
		s.concat("state_t", len(tokens))+" AS state_codes",
		s.total(len(tokens))+" AS relevance_score",
	)
	scored.Select(scoredCols...)
	scored.From(scored.BuilderAs(codes, "c"))

	outer := flavor.NewSelectBuilder()
	outer.Select("*")
	outer.From(outer.BuilderAs(scored, "s"))
	outer.Where(outer.GreaterEqualThan("relevance_score", minScore))

	return outer.Build()
}

func (s *scoreQuery) textTokens() []string {
	if !s.q.IsText() {
		return nil
	}
	return s.q.Tokens
}

// real renders a numeric literal as a double precision value
func (s *scoreQuery) real(literal string) string {
	if s.dialect == database.DialectPostgres {
		return fmt.Sprintf("CAST(%s AS DOUBLE PRECISION)", literal)
	}
	if strings.Contains(literal, ".") {
		return literal
	}
	return literal + ".0"
}

func (s *scoreQuery) toReal(expr string) string {
	if s.dialect == database.DialectPostgres {
		return fmt.Sprintf("CAST(%s AS DOUBLE PRECISION)", expr)
	}
	return fmt.Sprintf("CAST(%s AS REAL)", expr)
}

func like(sb *sqlbuilder.SelectBuilder, expr, pattern string) string {
	return fmt.Sprintf("%s LIKE %s ESCAPE '\\'", expr, sb.Var(pattern))
}

// fieldMatch is 2 for an exact value, 1 for containment and 0 otherwise
func (s *scoreQuery) fieldMatch(sb *sqlbuilder.SelectBuilder, col string, enabled bool, value string) string {
	if !enabled || value == "" {
		return "0"
	}
	return fmt.Sprintf("CASE WHEN %s = %s THEN 2 WHEN %s THEN 1 ELSE 0 END",
		col, sb.Var(value), like(sb, col, database.LikeContains(value)))
}

// tokenMatch is the matching.TokenMatch code of token against a normalized field
func (s *scoreQuery) tokenMatch(sb *sqlbuilder.SelectBuilder, col, token string) string {
	escaped := database.Escaper.Replace(token)
	return fmt.Sprintf("CASE WHEN %s THEN %d WHEN %s THEN %d WHEN %s THEN %d ELSE %d END",
		like(sb, fmt.Sprintf("' ' || %s || ' '", col), "% "+escaped+" %"), matching.TokenWordExact,
		like(sb, fmt.Sprintf("' ' || %s", col), "% "+escaped+"%"), matching.TokenStartsWith,
		like(sb, col, "%"+escaped+"%"), matching.TokenContains,
		matching.TokenNoMatch,
	)
}

func (s *scoreQuery) contains(sb *sqlbuilder.SelectBuilder, col, token string) string {
	return fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", like(sb, col, database.LikeContains(token)))
}

func (s *scoreQuery) prefix(sb *sqlbuilder.SelectBuilder, col string) string {
	first := ""
	if s.q.IsText() {
		first = s.q.FirstToken()
	}
	if first == "" {
		return "0"
	}
	return fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", like(sb, col, database.Escaper.Replace(first)+"%"))
}

// recency mirrors matching.RecencyBonus operation by operation
func (s *scoreQuery) recency() string {
	elapsed := fmt.Sprintf("(CASE WHEN last_activity_unix > %d THEN 0 ELSE %d - last_activity_unix END)", s.now, s.now)
	decay := fmt.Sprintf("%s * (%s - ((%s / %s) / %s))",
		s.real(fmt.Sprint(matching.WeightRecentActivity)),
		s.real("1"),
		s.toReal(elapsed),
		s.real(fmt.Sprint(matching.RecencySecondsPerMonth)),
		s.real(fmt.Sprint(matching.RecencyWindowMonths)),
	)
	return fmt.Sprintf("CASE WHEN last_activity_unix IS NULL THEN %s WHEN %s > %d THEN %s ELSE %s END",
		s.real("0"), elapsed, matching.RecencyWindowSeconds, s.real("0"), decay)
}

func (s *scoreQuery) concat(prefix string, n int) string {
	if n == 0 {
		return "''"
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("CAST(%s%d AS TEXT)", prefix, i)
	}
	return strings.Join(parts, " || ")
}

func tokenWeight(col string) string {
	return fmt.Sprintf("CASE %s WHEN %d THEN %d WHEN %d THEN %d WHEN %d THEN %d ELSE 0 END", col,
		matching.TokenWordExact, matching.TokenWordExact.Weight(),
		matching.TokenStartsWith, matching.TokenStartsWith.Weight(),
		matching.TokenContains, matching.TokenContains.Weight(),
	)
}

func positive(col string) string {
	return fmt.Sprintf("CASE WHEN %s > 0 THEN 1 ELSE 0 END", col)
}

func sum(terms []string) string {
	if len(terms) == 0 {
		return "0"
	}
	return "(" + strings.Join(terms, " + ") + ")"
}

// total mirrors matching.Breakdown.Total, including its order of floating point operations
func (s *scoreQuery) total(n int) string {
	var name, email, nameHits, emailHits, location []string
	for i := 0; i < n; i++ {
		name = append(name, tokenWeight(fmt.Sprintf("name_t%d", i)))
		email = append(email, tokenWeight(fmt.Sprintf("email_t%d", i)))
		nameHits = append(nameHits, positive(fmt.Sprintf("name_t%d", i)))
		emailHits = append(emailHits, positive(fmt.Sprintf("email_t%d", i)))
		location = append(location, fmt.Sprintf("city_t%d", i), fmt.Sprintf("state_t%d", i))
	}

	nameScore := sum(append(name, fmt.Sprintf("name_prefix * %d", matching.WeightPrefixBonus)))
	emailText := sum(append(email, fmt.Sprintf("email_prefix * %d", matching.WeightPrefixBonus)))

	var locationScore []string
	for i := 0; i < n; i++ {
		locationScore = append(locationScore,
			fmt.Sprintf("city_t%d * %d", i, matching.WeightCity),
			fmt.Sprintf("state_t%d * %d", i, matching.WeightState))
	}

	reasons := sum([]string{
		positive("phone_m"),
		positive("email_m"),
		sum(nameHits),
		fmt.Sprintf("CASE WHEN %s > 0 THEN %s ELSE 0 END", emailText, sum(emailHits)),
		sum(location),
	})

	integer := sum([]string{
		fmt.Sprintf("CASE phone_m WHEN %d THEN %d WHEN %d THEN %d ELSE 0 END",
			matching.FieldExact, matching.WeightExact, matching.FieldPartial, matching.WeightPhonePartial),
		fmt.Sprintf("CASE email_m WHEN %d THEN %d WHEN %d THEN %d ELSE 0 END",
			matching.FieldExact, matching.WeightExact, matching.FieldPartial, matching.WeightEmailPartial),
		nameScore,
		sum(locationScore),
		fmt.Sprintf("is_active * %d", matching.WeightActive),
		fmt.Sprintf("has_email * %d", matching.WeightHasEmail),
		fmt.Sprintf("has_phone * %d", matching.WeightHasPhone),
		fmt.Sprintf("CASE WHEN %s > 1 THEN %d ELSE 0 END", reasons, matching.WeightMultipleMatch),
	})

	raw := fmt.Sprintf("((%s + (%s * %s)) + recency) + %s",
		s.toReal(integer), s.toReal(emailText), s.real(fmt.Sprint(matching.EmailTextFactor)), s.real("0.5"))

	if s.dialect == database.DialectPostgres {
		return fmt.Sprintf("CAST(FLOOR(%s) AS BIGINT)", raw)
	}
	return fmt.Sprintf("CAST(%s AS INTEGER)", raw)
}

// activeExpr mirrors matching.ActivePolicy.IsActiveNormalized over the stored status_norm column
func activeExpr(sb *sqlbuilder.SelectBuilder, policy *matching.ActivePolicy) string {
	anyToken := func(tokens []string) string {
		if len(tokens) == 0 {
			return "1 = 0"
		}
		parts := make([]string, len(tokens))
		for i, token := range tokens {
			parts[i] = like(sb, "status_norm", database.LikeContains(token))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}

	overrides := policy.Overrides()
	platforms := make([]string, 0, len(overrides))
	for platform := range overrides {
		platforms = append(platforms, string(platform))
	}
	sort.Strings(platforms)

	var b strings.Builder
	b.WriteString("CASE WHEN status_norm = '' THEN 0")
	fmt.Fprintf(&b, " WHEN %s THEN 0", anyToken(policy.Negative()))
	for _, platform := range platforms {
		fmt.Fprintf(&b, " WHEN platform = %s THEN (CASE WHEN %s THEN 1 ELSE 0 END)",
			sb.Var(platform), anyToken(overrides[models.Platform(platform)]))
	}
	fmt.Fprintf(&b, " WHEN %s THEN 1 ELSE 0 END", anyToken(policy.Fallback()))
	return b.String()
}
