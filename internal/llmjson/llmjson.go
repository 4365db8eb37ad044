// Package llmjson normalizes JSON produced by language models before
// parsing. Models wrap JSON in markdown code fences and occasionally emit
// arithmetic in number positions ("payableAmount": 12000 - 500 * 0.2); both
// are repaired here so call sites can unmarshal with plain encoding/json.
package llmjson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Unmarshal parses model output into v. The raw text is tried as-is first,
// then with code fences stripped and arithmetic expressions evaluated.
func Unmarshal(raw string, v any) error {
	raw = strings.TrimSpace(raw)

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	sanitized := Sanitize(raw)
	if err := json.Unmarshal([]byte(sanitized), v); err != nil {
		return fmt.Errorf("json parse: %w", err)
	}
	return nil
}

// Sanitize strips surrounding markdown code fences and replaces bare
// arithmetic expressions in value positions with their computed result.
func Sanitize(raw string) string {
	return evalArithmetic(StripFences(raw))
}

// StripFences removes a surrounding markdown code fence (```json ... ```)
// if present. Text without fences is returned trimmed but otherwise intact.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return raw
	}

	// Remove first line (```json) and a trailing ``` line.
	start := 1
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

// exprPattern matches a value position holding two or more numbers joined by
// + - * / operators, e.g. `"payableAmount": 12000 - 500 * 0.2`.
var exprPattern = regexp.MustCompile(`(:\s*)(-?\d+(?:\.\d+)?(?:\s*[-+*/]\s*-?\d+(?:\.\d+)?)+)(\s*[,}\]\n])`)

func evalArithmetic(raw string) string {
	return exprPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if groups == nil {
			return match
		}
		result, err := evalExpr(groups[2])
		if err != nil {
			return match
		}
		return groups[1] + strconv.FormatFloat(result, 'f', -1, 64) + groups[3]
	})
}

// evalExpr evaluates a flat arithmetic expression with * and / binding
// tighter than + and -. No parentheses: the pattern never captures them.
func evalExpr(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}

	// First pass: collapse * and /.
	var values []float64
	var ops []rune
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

	// Second pass: + and - left to right.
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
	op    rune
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	rest := strings.TrimSpace(expr)
	expectNumber := true

	for rest != "" {
		rest = strings.TrimSpace(rest)
		if expectNumber {
			i := 0
			if i < len(rest) && rest[i] == '-' {
				i++
			}
			for i < len(rest) && (rest[i] >= '0' && rest[i] <= '9' || rest[i] == '.') {
				i++
			}
			num, err := strconv.ParseFloat(rest[:i], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number in %q: %w", expr, err)
			}
			tokens = append(tokens, token{value: num})
			rest = rest[i:]
		} else {
			op := rune(rest[0])
			if op != '+' && op != '-' && op != '*' && op != '/' {
				return nil, fmt.Errorf("bad operator %q in %q", op, expr)
			}
			tokens = append(tokens, token{op: op})
			rest = rest[1:]
		}
		expectNumber = !expectNumber
	}

	if len(tokens) == 0 || len(tokens)%2 == 0 {
		return nil, fmt.Errorf("incomplete expression %q", expr)
	}
	return tokens, nil
}
