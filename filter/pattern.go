package filter

import (
	"errors"
	"strconv"

	"github.com/arnodel/grammar"
	"github.com/jsonflume/jsonflume/token"
)

// Pattern syntax, parsed with the grammar package:
//
//	pattern    = segment ("." segment)*
//	segment    = name | index | "*" | "**"
//
// "*" matches exactly one path element, "**" matches any number of
// consecutive elements (including none).  An index segment matches only
// array positions, a name segment only object keys.

type Tok = grammar.SimpleToken

var tokenisePattern = grammar.SimpleTokeniser([]grammar.TokenDef{
	{
		Name: "doublestar",
		Ptn:  `\*\*`,
	},
	{
		Name: "star",
		Ptn:  `\*`,
	},
	{
		Name: "dot",
		Ptn:  `\.`,
	},
	{
		Name: "index",
		Ptn:  `0|[1-9][0-9]*`,
	},
	{
		Name: "name",
		Ptn:  `[a-zA-Z_][a-zA-Z_0-9$-]*`,
	},
})

type patternExpr struct {
	grammar.Seq
	First patternSegment
	Rest  []dottedSegment
}

type dottedSegment struct {
	grammar.Seq
	Dot Tok `tok:"dot"`
	Seg patternSegment
}

type patternSegment struct {
	grammar.OneOf
	Name       *Tok `tok:"name"`
	Index      *Tok `tok:"index"`
	Star       *Tok `tok:"star"`
	DoubleStar *Tok `tok:"doublestar"`
}

type segmentKind uint8

const (
	segName segmentKind = iota
	segIndex
	segStar
	segDeep
)

type segment struct {
	kind  segmentKind
	name  string
	index int
}

func (s patternSegment) compile() (segment, error) {
	switch {
	case s.Name != nil:
		return segment{kind: segName, name: s.Name.TokValue}, nil
	case s.Index != nil:
		index, err := strconv.Atoi(s.Index.TokValue)
		if err != nil {
			return segment{}, err
		}
		return segment{kind: segIndex, index: index}, nil
	case s.Star != nil:
		return segment{kind: segStar}, nil
	case s.DoubleStar != nil:
		return segment{kind: segDeep}, nil
	default:
		panic("invalid pattern segment")
	}
}

// A Pattern is a compiled path pattern usable as a filter predicate.
type Pattern struct {
	source string
	segs   []segment
}

var _ Predicate = &Pattern{}

// ParsePattern compiles a path pattern such as "items.*.id" or
// "**.name".
func ParsePattern(s string) (*Pattern, error) {
	stream, err := tokenisePattern(s)
	if err != nil {
		return nil, err
	}
	var expr patternExpr
	parseErr := grammar.Parse(&expr, stream)
	if parseErr != nil {
		return nil, parseErr
	}
	if next := stream.Next(); next != grammar.EOF {
		return nil, errors.New("invalid path pattern")
	}
	segs := make([]segment, 0, len(expr.Rest)+1)
	seg, err := expr.First.compile()
	if err != nil {
		return nil, err
	}
	segs = append(segs, seg)
	for _, d := range expr.Rest {
		seg, err := d.Seg.compile()
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return &Pattern{source: s, segs: segs}, nil
}

func (p *Pattern) String() string {
	return p.source
}

func (p *Pattern) Decide(path Path, tok token.Token) Decision {
	return matchSegments(p.segs, path)
}

func (s segment) matches(e Element) bool {
	switch s.kind {
	case segName:
		return !e.IsIndex && e.Key == s.name
	case segIndex:
		return e.IsIndex && e.Index == s.index
	case segStar:
		return true
	default:
		panic("deep segment matched elementwise")
	}
}

func matchSegments(segs []segment, path Path) Decision {
	if len(segs) == 0 {
		if len(path) == 0 {
			return Accept
		}
		return Reject
	}
	if segs[0].kind == segDeep {
		// "**" can swallow any number of leading elements.  If no split
		// accepts now, a longer path still might, so the result is at
		// worst Undecided.
		for i := 0; i <= len(path); i++ {
			if matchSegments(segs[1:], path[i:]) == Accept {
				return Accept
			}
		}
		return Undecided
	}
	if len(path) == 0 {
		return Undecided
	}
	if !segs[0].matches(path[0]) {
		return Reject
	}
	return matchSegments(segs[1:], path[1:])
}
