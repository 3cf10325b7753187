package mailtemplate

import (
	"fmt"
	"text/template"
	"text/template/parse"

	"github.com/Masterminds/sprig/v3"
)

// Reference is a top-level name used by template content.
type Reference struct {
	Name string
	// Block is set when the name opens a range or with section.
	Block bool
	// List is set when the name is ranged over.
	List bool
	// Chained is set when fields are read through the name ({{.Member.Name}}).
	Chained bool
}

// Scan returns the top-level placeholders and blocks referenced by content,
// in order of first appearance. Names used inside a block body are relative
// to the block element and are not reported, except through $.
func Scan(content string) ([]Reference, error) {
	tmpl, err := template.New("content").Funcs(sprig.TxtFuncMap()).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	s := &scanner{index: make(map[string]int)}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil && t.Tree.Root != nil {
			s.walk(t.Tree.Root, true)
		}
	}
	return s.refs, nil
}

type scanner struct {
	index map[string]int
	refs  []Reference
}

func (s *scanner) add(ref Reference) {
	i, ok := s.index[ref.Name]
	if !ok {
		s.index[ref.Name] = len(s.refs)
		s.refs = append(s.refs, ref)
		return
	}
	cur := &s.refs[i]
	cur.Block = cur.Block || ref.Block
	cur.List = cur.List || ref.List
	cur.Chained = cur.Chained || ref.Chained
}

func (s *scanner) walk(node parse.Node, top bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			s.walk(child, top)
		}
	case *parse.ActionNode:
		s.pipe(n.Pipe, top)
	case *parse.IfNode:
		s.pipe(n.Pipe, top)
		s.walk(n.List, top)
		s.walk(n.ElseList, top)
	case *parse.RangeNode:
		s.block(&n.BranchNode, top, true)
	case *parse.WithNode:
		s.block(&n.BranchNode, top, false)
	case *parse.TemplateNode:
		s.pipe(n.Pipe, top)
	}
}

// block records {{range .X}} / {{with .X}} and walks the body with dot rebound.
// The else branch runs with the original dot.
func (s *scanner) block(n *parse.BranchNode, top, list bool) {
	if name, ok := blockName(n.Pipe); ok && top {
		s.add(Reference{Name: name, Block: true, List: list})
	} else {
		s.pipe(n.Pipe, top)
	}
	s.walk(n.List, false)
	s.walk(n.ElseList, top)
}

func blockName(p *parse.PipeNode) (string, bool) {
	if p == nil || len(p.Cmds) != 1 || len(p.Cmds[0].Args) != 1 {
		return "", false
	}
	f, ok := p.Cmds[0].Args[0].(*parse.FieldNode)
	if !ok || len(f.Ident) != 1 {
		return "", false
	}
	return f.Ident[0], true
}

func (s *scanner) pipe(p *parse.PipeNode, top bool) {
	if p == nil {
		return
	}
	for _, cmd := range p.Cmds {
		for _, arg := range cmd.Args {
			s.arg(arg, top)
		}
	}
}

func (s *scanner) arg(node parse.Node, top bool) {
	switch n := node.(type) {
	case *parse.FieldNode:
		if top {
			s.add(Reference{Name: n.Ident[0], Chained: len(n.Ident) > 1})
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			s.add(Reference{Name: n.Ident[1], Chained: len(n.Ident) > 2})
		}
	case *parse.ChainNode:
		s.arg(n.Node, top)
	case *parse.PipeNode:
		s.pipe(n, top)
	}
}
