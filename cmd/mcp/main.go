// Command mcp serves the demo tool set as an MCP server over stdio.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/smartsource/agentloop/mcp"
	"github.com/smartsource/agentloop/tool"
)

func main() {
	registry := tool.NewRegistry()

	tool.MustRegisterFunc(registry, "calculator",
		"Evaluate a basic arithmetic expression, e.g. \"2+2\"",
		func(ctx context.Context, args struct {
			A  float64 `json:"a" desc:"Left operand" required:"true"`
			Op string  `json:"op" desc:"Operator: + - * /" required:"true"`
			B  float64 `json:"b" desc:"Right operand" required:"true"`
		}) (string, error) {
			var result float64
			switch args.Op {
			case "+":
				result = args.A + args.B
			case "-":
				result = args.A - args.B
			case "*":
				result = args.A * args.B
			case "/":
				if args.B == 0 {
					return "", fmt.Errorf("division by zero")
				}
				result = args.A / args.B
			default:
				return "", fmt.Errorf("unknown operator %q", args.Op)
			}
			return strconv.FormatFloat(result, 'f', -1, 64), nil
		},
	)

	tool.MustRegisterFunc(registry, "get_date",
		"Get the current date and time",
		func(ctx context.Context, args struct{}) (string, error) {
			return time.Now().UTC().Format(time.RFC3339), nil
		},
	)

	if err := mcp.ServeStdio(registry, mcp.WithName("agentloop-demo-tools")); err != nil {
		slog.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
