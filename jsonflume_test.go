package jsonflume

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/jsonflume/jsonflume/filter"
	"github.com/jsonflume/jsonflume/tokenizer"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"scalar", `42`, 42.0},
		{"object", `{"a": {"b": [1, 2, 3]}, "c": 1}`, map[string]any{
			"a": map[string]any{"b": []any{1.0, 2.0, 3.0}},
			"c": 1.0,
		}},
		{"array", `[true, null, "s"]`, []any{true, nil, "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(context.Background(), strings.NewReader(tt.input))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeMatchesEncodingJSON(t *testing.T) {
	// A larger document, decoded both ways.
	var b strings.Builder
	b.WriteString(`{"users": [`)
	for i := 0; i < 100; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id": %d, "name": "user-%d", "scores": [%d.5, %d], "active": %v}`,
			i, i, i, i*2, i%3 == 0)
	}
	b.WriteString(`], "total": 100}`)
	input := b.String()

	got, err := Decode(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	var want any
	require.NoError(t, json.Unmarshal([]byte(input), &want))

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ``},
		{"malformed", `{"a":}`},
		{"truncated", `{"a": [1, 2`},
		{"trailing garbage", `{} x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestSelect(t *testing.T) {
	input := `{"a": {"id": 1}, "b": {"id": 2}, "c": 3}`
	pat, err := filter.ParsePattern("*.id")
	require.NoError(t, err)

	got, err := Select(context.Background(), strings.NewReader(input), pat)
	require.NoError(t, err)
	if diff := cmp.Diff([]any{1.0, 2.0}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectNoMatches(t *testing.T) {
	got, err := Select(context.Background(), strings.NewReader(`{"a": 1}`), filter.Literal("b"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSelectSubtree(t *testing.T) {
	input := `{"a": {"b": [1, 2, 3]}, "c": 1}`
	got, err := Select(context.Background(), strings.NewReader(input), filter.Literal("a.b"))
	require.NoError(t, err)
	if diff := cmp.Diff([]any{[]any{1.0, 2.0, 3.0}}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectOne(t *testing.T) {
	input := `{"items": [10, 20, 30]}`
	pat, err := filter.ParsePattern("items.*")
	require.NoError(t, err)

	got, err := SelectOne(context.Background(), strings.NewReader(input), pat)
	require.NoError(t, err)
	require.Equal(t, 10.0, got)
}

func TestSelectOneNotFound(t *testing.T) {
	_, err := SelectOne(context.Background(), strings.NewReader(`{"a": 1}`), filter.Literal("missing"))
	var nf *filter.PathNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSelectOneStopsReading(t *testing.T) {
	// The match completes long before the document does: a reader that
	// fails past the first element must not affect the result.
	head := `{"items": [{"id": 1}, `
	r := &poisonedReader{data: head}
	got, err := SelectOne(context.Background(), r, filter.Literal("items.0"))
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]any{"id": 1.0}, got); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

// poisonedReader serves its data one byte per read and fails once it
// runs out.
type poisonedReader struct {
	data string
	pos  int
}

func (r *poisonedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("read past the expected point")
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestStreamArray(t *testing.T) {
	ctx := context.Background()
	s := StreamArray(ctx, strings.NewReader(`[{"id": 1}, {"id": 2}, {"id": 3}]`), StreamArrayOptions{})

	page, err := s.NextPage(ctx, 2)
	require.NoError(t, err)
	require.True(t, page.HasMore)
	want := []any{map[string]any{"id": 1.0}, map[string]any{"id": 2.0}}
	if diff := cmp.Diff(want, page.Values); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}

	page, err = s.NextPage(ctx, 2)
	require.NoError(t, err)
	require.False(t, page.HasMore)
	require.Len(t, page.Values, 1)
}

func TestStreamArrayWithPath(t *testing.T) {
	ctx := context.Background()
	input := `{"meta": {"total": 2}, "results": [1, 2]}`
	s := StreamArray(ctx, strings.NewReader(input), StreamArrayOptions{
		Path: filter.Literal("results"),
	})

	var got []any
	for {
		v, ok, err := s.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	if diff := cmp.Diff([]any{1.0, 2.0}, got); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamArrayPathNotFound(t *testing.T) {
	ctx := context.Background()
	s := StreamArray(ctx, strings.NewReader(`{"a": 1}`), StreamArrayOptions{
		Path: filter.Literal("results"),
	})
	_, _, err := s.Next(ctx)
	var nf *filter.PathNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestStreamArrayKeepAndReviver(t *testing.T) {
	ctx := context.Background()
	input := `[{"id": 1, "tmp": true}, {"id": 2, "tmp": true}, {"id": 3, "tmp": true}]`
	s := StreamArray(ctx, strings.NewReader(input), StreamArrayOptions{
		Keep: func(v any) bool {
			m, ok := v.(map[string]any)
			return ok && m["id"] != 2.0
		},
		Reviver: func(key string, value any) (any, bool) {
			return value, key != "tmp"
		},
	})
	var got []any
	for {
		v, ok, err := s.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []any{map[string]any{"id": 1.0}, map[string]any{"id": 3.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamArrayCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := StreamArray(ctx, strings.NewReader(`[1, 2, 3, 4]`), StreamArrayOptions{})

	_, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	_, _, err = s.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSourceReportsTokenizerError(t *testing.T) {
	src := NewSource(context.Background(), strings.NewReader(`{"a":}`), tokenizer.PackedOnly())
	for {
		_, ok := src.Next()
		if !ok {
			break
		}
	}
	var merr *tokenizer.MalformedError
	require.ErrorAs(t, src.Err(), &merr)
}

func TestSourceEmitsAllTokens(t *testing.T) {
	src := NewSource(context.Background(), strings.NewReader(`[1, 2]`), tokenizer.PackedOnly())
	n := 0
	for {
		_, ok := src.Next()
		if !ok {
			break
		}
		n++
	}
	require.NoError(t, src.Err())
	require.Equal(t, 4, n)
}

func TestSourceCancelledWhileBlocked(t *testing.T) {
	// A consumer abandoning the stream must unblock the source
	// goroutine via its context rather than leaving it suspended on the
	// send forever.
	ctx, cancel := context.WithCancel(context.Background())
	src := NewSource(ctx, strings.NewReader(`[1, 2, 3]`), tokenizer.PackedOnly())

	_, ok := src.Next()
	require.True(t, ok)
	cancel()

	// With no consumer receiving, the only exit for the blocked send is
	// the cancelled context.  Give the goroutine a moment to take it.
	time.Sleep(10 * time.Millisecond)

	_, ok = src.Next()
	require.False(t, ok)
	require.ErrorIs(t, src.Err(), context.Canceled)
}
