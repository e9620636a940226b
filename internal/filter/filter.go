// Package filter narrows feed results with CEL predicates such as
//
//	v.views > 1000000 && v.title.lowerAscii().contains("live")
//
// Each video is bound to the variable v as a map with the keys listed by
// Variables.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/tubex/internal/youtube"
)

// Variables are the fields available on v.
var Variables = []string{
	"v.id",
	"v.title",
	"v.description",
	"v.channel",
	"v.channel_id",
	"v.views",
	"v.has_stats",
	"v.duration_seconds",
	"v.age_hours",
}

// Filter is a compiled predicate.
type Filter struct {
	expr string
	prg  cel.Program
	now  func() time.Time
}

// Option configures a Filter.
type Option func(*Filter)

// WithClock overrides the time used for v.age_hours.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("v", cel.MapType(cel.StringType, cel.DynType)),
		celext.Strings(),
		celext.Lists(),
		celext.Math(),
	)
}

// New compiles expr. An expression whose type is known not to be bool is
// rejected at compile time.
func New(expr string, opts ...Option) (*Filter, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(types.BoolType) && !out.IsExactType(types.DynType) {
		return nil, fmt.Errorf("filter %q must be a boolean expression, got %s", expr, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	f := &Filter{expr: expr, prg: prg, now: time.Now}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.expr }

// Vars builds the map bound to v.
func Vars(v youtube.Video, now time.Time) map[string]any {
	age := int64(0)
	if !v.PublishedAt.IsZero() {
		age = int64(now.Sub(v.PublishedAt) / time.Hour)
	}
	return map[string]any{
		"id":               v.ID,
		"title":            v.Title,
		"description":      v.Description,
		"channel":          v.ChannelTitle,
		"channel_id":       v.ChannelID,
		"views":            v.ViewCount,
		"has_stats":        v.HasStats,
		"duration_seconds": int64(v.Duration / time.Second),
		"age_hours":        age,
	}
}

// Match evaluates the predicate for one video.
func (f *Filter) Match(v youtube.Video) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{"v": Vars(v, f.now())})
	if err != nil {
		return false, fmt.Errorf("eval filter on %s: %w", v.ID, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %s, not bool", f.expr, out.Type())
	}
	return bool(b), nil
}

// Apply returns the videos that match, in order. A nil Filter matches all.
func (f *Filter) Apply(videos []youtube.Video) ([]youtube.Video, error) {
	if f == nil {
		return videos, nil
	}
	out := make([]youtube.Video, 0, len(videos))
	for _, v := range videos {
		ok, err := f.Match(v)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Functions lists the callable functions and macros of the filter
// environment, for shell completion.
func Functions() ([]string, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	seen := make(map[string]bool)
	for _, fn := range env.Functions() {
		if !isOperator(fn.Name()) {
			seen[fn.Name()] = true
		}
	}
	for _, m := range env.Macros() {
		if !isOperator(m.Function()) {
			seen[m.Function()] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// isOperator filters out operator-style internal declarations.
func isOperator(name string) bool {
	if strings.Contains(name, "@") {
		return true
	}
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		return true
	}
	return strings.ContainsAny(name, "!-[]")
}
