package template

import (
	"fmt"
	"text/template"
	"text/template/parse"

	"github.com/dukex/nbctl/pkg/models"
)

// Parameters lists the arguments body reads, in order of first use. An
// argument only ever read with argOr carries the literal default.
func Parameters(body string) ([]models.TemplateParameter, error) {
	tmpl, err := template.New("notebook").Funcs(parseFuncs()).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	collector := &parameterCollector{seen: make(map[string]int)}

	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			collector.walk(t.Tree.Root)
		}
	}

	return collector.params, nil
}

type parameterCollector struct {
	params []models.TemplateParameter
	seen   map[string]int
}

func (c *parameterCollector) walk(node parse.Node) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}

		for _, child := range n.Nodes {
			c.walk(child)
		}
	case *parse.ActionNode:
		c.walk(n.Pipe)
	case *parse.IfNode:
		c.walkBranch(&n.BranchNode)
	case *parse.RangeNode:
		c.walkBranch(&n.BranchNode)
	case *parse.WithNode:
		c.walkBranch(&n.BranchNode)
	case *parse.TemplateNode:
		c.walk(n.Pipe)
	case *parse.PipeNode:
		if n == nil {
			return
		}

		for _, cmd := range n.Cmds {
			c.walk(cmd)
		}
	case *parse.CommandNode:
		c.command(n)

		for _, arg := range n.Args {
			c.walk(arg)
		}
	}
}

func (c *parameterCollector) walkBranch(branch *parse.BranchNode) {
	c.walk(branch.Pipe)
	c.walk(branch.List)
	c.walk(branch.ElseList)
}

func (c *parameterCollector) command(cmd *parse.CommandNode) {
	if len(cmd.Args) < 2 {
		return
	}

	ident, ok := cmd.Args[0].(*parse.IdentifierNode)
	if !ok || (ident.Ident != "arg" && ident.Ident != "argOr") {
		return
	}

	name, ok := cmd.Args[1].(*parse.StringNode)
	if !ok {
		return
	}

	param := models.TemplateParameter{Name: name.Text, Type: "any"}

	if ident.Ident == "argOr" && len(cmd.Args) > 2 {
		param.Type, param.Default = literal(cmd.Args[2])
	}

	if index, exists := c.seen[param.Name]; exists {
		// arg anywhere in the body makes the parameter required
		if ident.Ident == "arg" {
			c.params[index].Default = nil
		}

		return
	}

	c.seen[param.Name] = len(c.params)
	c.params = append(c.params, param)
}

func literal(node parse.Node) (string, any) {
	switch n := node.(type) {
	case *parse.StringNode:
		return "string", n.Text
	case *parse.NumberNode:
		if n.IsInt {
			return "number", n.Int64
		}

		return "number", n.Float64
	case *parse.BoolNode:
		return "boolean", n.True
	case *parse.NilNode:
		return "any", nil
	default:
		// computed defaults are reported as their source expression
		return "expression", node.String()
	}
}
