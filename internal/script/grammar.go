package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Scenario scripts are line-oriented ring commands:
//
//	# build a ring
//	join 0
//	join 30 via 0
//	insert 3 = 3 at 0
//	insert 200 at 30        # no value stores -1
//	remove 3 at 0
//	find 50 from 0
//	leave 65
//	fingers                 # every member, or: fingers 0 30
//	keys                    # every member, or: keys 100
//	echo "Keys after the join:"
//
// Keywords are case-insensitive. Comments run from # to the end of the line.

var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Int", Pattern: `-?\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Punct", Pattern: `=`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Script is a parsed scenario.
type Script struct {
	Statements []*Statement `@@*`
}

// Statement is one command. Exactly one field is set.
type Statement struct {
	Pos lexer.Position

	Join    *Join    `  @@`
	Leave   *Leave   `| @@`
	Insert  *Insert  `| @@`
	Remove  *Remove  `| @@`
	Find    *Find    `| @@`
	Fingers *Fingers `| @@`
	Keys    *Keys    `| @@`
	Echo    *Echo    `| @@`
}

// Join admits a node, through a contact when Via is set.
type Join struct {
	ID  int  `"join" @Int`
	Via *int `( "via" @Int )?`
}

// Leave removes a member.
type Leave struct {
	ID int `"leave" @Int`
}

// Insert stores Key, routed from At. A missing Value stores -1.
type Insert struct {
	Key   int  `"insert" @Int`
	Value *int `( "=" @Int )?`
	At    int  `"at" @Int`
}

// Remove deletes Key, routed from At.
type Remove struct {
	Key int `"remove" @Int`
	At  int `"at" @Int`
}

// Find looks Key up starting from From.
type Find struct {
	Key  int `"find" @Int`
	From int `"from" @Int`
}

// Fingers prints finger tables of IDs, or of every member.
type Fingers struct {
	Keyword string `@"fingers"`
	IDs     []int  `@Int*`
}

// Keys prints key distributions of IDs, or of every member.
type Keys struct {
	Keyword string `@"keys"`
	IDs     []int  `@Int*`
}

// Echo passes a line of text to the reporter.
type Echo struct {
	Text string `"echo" @String`
}

var parser = participle.MustBuild[Script](
	participle.Lexer(scriptLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
	participle.CaseInsensitive("Ident"),
)

// Parse parses a scenario. name labels positions in error messages.
func Parse(name, src string) (*Script, error) {
	s, err := parser.ParseString(name, src)
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return s, nil
}

// String renders the statement back in script syntax.
func (s *Statement) String() string {
	switch {
	case s.Join != nil:
		if s.Join.Via != nil {
			return fmt.Sprintf("join %d via %d", s.Join.ID, *s.Join.Via)
		}
		return fmt.Sprintf("join %d", s.Join.ID)
	case s.Leave != nil:
		return fmt.Sprintf("leave %d", s.Leave.ID)
	case s.Insert != nil:
		if s.Insert.Value != nil {
			return fmt.Sprintf("insert %d = %d at %d", s.Insert.Key, *s.Insert.Value, s.Insert.At)
		}
		return fmt.Sprintf("insert %d at %d", s.Insert.Key, s.Insert.At)
	case s.Remove != nil:
		return fmt.Sprintf("remove %d at %d", s.Remove.Key, s.Remove.At)
	case s.Find != nil:
		return fmt.Sprintf("find %d from %d", s.Find.Key, s.Find.From)
	case s.Fingers != nil:
		return strings.TrimSpace("fingers " + joinInts(s.Fingers.IDs))
	case s.Keys != nil:
		return strings.TrimSpace("keys " + joinInts(s.Keys.IDs))
	case s.Echo != nil:
		return "echo " + strconv.Quote(s.Echo.Text)
	default:
		return "<empty>"
	}
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}
