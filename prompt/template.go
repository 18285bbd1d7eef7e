package prompt

import (
	"bytes"
	"fmt"
	"text/template"
	"text/template/parse"

	"github.com/samber/lo"
)

// Template is a named prompt template. Rendering fails when a referenced
// variable is missing instead of printing "<no value>".
type Template struct {
	name string
	tmpl *template.Template
	vars []string
}

// New parses text as a prompt template.
func New(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var vars []string
	if tmpl.Tree != nil {
		vars = collectFields(tmpl.Tree.Root, nil)
	}
	return &Template{name: name, tmpl: tmpl, vars: lo.Uniq(vars)}, nil
}

// Must panics if err is non-nil. It is meant for package-level templates.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Variables returns the top-level variables the template references, in
// order of first use.
func (t *Template) Variables() []string {
	return append([]string(nil), t.vars...)
}

// Render executes the template with vars.
func (t *Template) Render(vars map[string]any) (string, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	var buffer bytes.Buffer
	if err := t.tmpl.Execute(&buffer, vars); err != nil {
		return "", fmt.Errorf("executing template %s: %w", t.name, err)
	}
	return buffer.String(), nil
}

// collectFields walks the parse tree gathering the first identifier of every
// field reference such as {{ .Topic }} or {{ .User.Name }}.
func collectFields(node parse.Node, acc []string) []string {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return acc
		}
		for _, child := range n.Nodes {
			acc = collectFields(child, acc)
		}
	case *parse.ActionNode:
		acc = collectFields(n.Pipe, acc)
	case *parse.PipeNode:
		if n == nil {
			return acc
		}
		for _, cmd := range n.Cmds {
			acc = collectFields(cmd, acc)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			acc = collectFields(arg, acc)
		}
	case *parse.FieldNode:
		if len(n.Ident) > 0 {
			acc = append(acc, n.Ident[0])
		}
	case *parse.IfNode:
		acc = collectBranch(&n.BranchNode, acc)
	case *parse.RangeNode:
		// Fields inside a range refer to the element, not the root
		acc = collectFields(n.Pipe, acc)
		acc = collectFields(n.ElseList, acc)
	case *parse.WithNode:
		acc = collectFields(n.Pipe, acc)
		acc = collectFields(n.ElseList, acc)
	}
	return acc
}

func collectBranch(b *parse.BranchNode, acc []string) []string {
	acc = collectFields(b.Pipe, acc)
	acc = collectFields(b.List, acc)
	return collectFields(b.ElseList, acc)
}
