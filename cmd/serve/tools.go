package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smartsource/agentloop/tool"
)

// SetupDemoTools registers the demo tool set. Apart from the calculator and
// the date tool these return canned data; they exist to exercise the tool
// dispatch path, not to be useful.
func SetupDemoTools(registry *tool.Registry) {
	tool.MustRegisterFunc(registry, "calculator",
		"Evaluate a basic arithmetic expression, e.g. \"2+2\" or \"3 * 7 - 1\"",
		func(ctx context.Context, args struct {
			Expression string `json:"expression" desc:"Arithmetic expression using + - * /" required:"true"`
		}) (string, error) {
			result, err := evaluate(args.Expression)
			if err != nil {
				return "", err
			}
			return strconv.FormatFloat(result, 'f', -1, 64), nil
		},
	)

	tool.MustRegisterFunc(registry, "get_date",
		"Get the current date and time",
		func(ctx context.Context, args struct{}) (string, error) {
			return fmt.Sprintf(`{"date": %q, "timezone": "UTC"}`, time.Now().UTC().Format(time.RFC3339)), nil
		},
	)

	tool.MustRegisterFunc(registry, "get_weather",
		"Get the current weather for a location",
		func(ctx context.Context, args struct {
			Location string `json:"location" desc:"City name, e.g. Paris" required:"true"`
		}) (string, error) {
			return fmt.Sprintf(`{"location": %q, "temperature": 22, "conditions": "Sunny", "unit": "celsius"}`, args.Location), nil
		},
	)

	tool.MustRegisterFunc(registry, "web_search",
		"Search the web for a query",
		func(ctx context.Context, args struct {
			Query string `json:"query" desc:"Search query" required:"true"`
		}) (string, error) {
			return fmt.Sprintf(`{"query": %q, "results": [{"title": "Example result", "url": "https://example.com"}]}`, args.Query), nil
		},
	)

	tool.MustRegisterFunc(registry, "scrape_page",
		"Fetch the text content of a web page",
		func(ctx context.Context, args struct {
			URL string `json:"url" desc:"Page URL" required:"true"`
		}) (string, error) {
			return fmt.Sprintf(`{"url": %q, "content": "Example page content"}`, args.URL), nil
		},
	)
}

// evaluate computes a flat arithmetic expression with * and / binding
// tighter than + and -. No parentheses.
func evaluate(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 || len(tokens)%2 == 0 {
		return 0, fmt.Errorf("malformed expression: %q", expr)
	}

	// First pass: collapse * and /
	var values []float64
	var ops []byte

	values = append(values, tokens[0].value)
	for i := 1; i < len(tokens); i += 2 {
		op := tokens[i].op
		val := tokens[i+1].value
		switch op {
		case '*':
			values[len(values)-1] *= val
		case '/':
			if val == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			values[len(values)-1] /= val
		default:
			ops = append(ops, op)
			values = append(values, val)
		}
	}

	// Second pass: + and - left to right
	result := values[0]
	for i, op := range ops {
		if op == '+' {
			result += values[i+1]
		} else {
			result -= values[i+1]
		}
	}
	return result, nil
}

type token struct {
	value float64
	op    byte
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	s := strings.TrimSpace(expr)
	i := 0
	expectNumber := true

	for i < len(s) {
		if s[i] == ' ' {
			i++
			continue
		}
		if expectNumber {
			j := i
			if j < len(s) && (s[j] == '-' || s[j] == '+') {
				j++
			}
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			val, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number at %q", s[i:])
			}
			tokens = append(tokens, token{value: val})
			i = j
			expectNumber = false
		} else {
			op := s[i]
			if op != '+' && op != '-' && op != '*' && op != '/' {
				return nil, fmt.Errorf("invalid operator %q", string(op))
			}
			tokens = append(tokens, token{op: op})
			i++
			expectNumber = true
		}
	}

	return tokens, nil
}
