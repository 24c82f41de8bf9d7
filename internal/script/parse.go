package script

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const driveUntilStepCm = 0.2

// Parse decodes a YAML or JSON program document, validates it and compiles it
// to statement nodes.
func Parse(data []byte) (*Program, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalid)
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	return compileDocument(doc)
}

// ParseFile reads and parses the program at path.
func ParseFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return Parse(data)
}

func compileDocument(doc any) (*Program, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, invalidf("", "program document must be a mapping")
	}
	prog := &Program{}
	prog.Name, _ = root["name"].(string)
	prog.Challenge, _ = root["challenge"].(string)
	body, err := compileBlock(root["program"], "program")
	if err != nil {
		return nil, err
	}
	prog.Body = body
	return prog, nil
}

func compileBlock(v any, path string) ([]Stmt, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, invalidf(path, "want a list of statements")
	}
	var out []Stmt
	for i, item := range items {
		stmts, err := compileStmt(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

func compileStmt(v any, path string) ([]Stmt, error) {
	if s, ok := v.(string); ok && s == "stop" {
		return []Stmt{StopCmd{}}, nil
	}
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, invalidf(path, "want a single-key statement mapping")
	}
	for key, arg := range m {
		path = path + "." + key
		switch key {
		case "move":
			return compileMove(arg, path)
		case "turn":
			return compileTurn(arg, path)
		case "wait":
			return compileWait(arg, path)
		case "speed":
			e, err := compileExpr(arg, path)
			if err != nil {
				return nil, err
			}
			return []Stmt{SetSpeedCmd{Speed: e}}, nil
		case "led":
			fields, err := mapping(arg, path)
			if err != nil {
				return nil, err
			}
			side, _ := fields["side"].(string)
			color, err := compileExpr(fields["color"], path+".color")
			if err != nil {
				return nil, err
			}
			return []Stmt{SetLedCmd{Side: side, Color: color}}, nil
		case "led_off":
			side, _ := arg.(string)
			return []Stmt{SetLedCmd{Side: side, Color: Str{V: "black"}}}, nil
		case "stop":
			return []Stmt{StopCmd{}}, nil
		case "repeat":
			return compileRepeat(arg, path)
		case "if":
			return compileIf(arg, path)
		case "while", "until":
			return compileLoop(arg, path, key == "until")
		case "drive_until":
			return compileDriveUntil(arg, path)
		default:
			return nil, invalidf(path, "unknown statement")
		}
	}
	return nil, invalidf(path, "empty statement")
}

func compileMove(arg any, path string) ([]Stmt, error) {
	fields, ok := arg.(map[string]any)
	if !ok || fields["distance"] == nil {
		e, err := compileExpr(arg, path)
		if err != nil {
			return nil, err
		}
		return []Stmt{MoveCmd{Distance: e}}, nil
	}
	dist, err := compileExpr(fields["distance"], path+".distance")
	if err != nil {
		return nil, err
	}
	if fields["direction"] == "backward" {
		dist = negate(dist)
	}
	var out []Stmt
	if raw, ok := fields["speed"]; ok {
		speed, err := compileExpr(raw, path+".speed")
		if err != nil {
			return nil, err
		}
		out = append(out, SetSpeedCmd{Speed: speed})
	}
	return append(out, MoveCmd{Distance: dist}), nil
}

func compileTurn(arg any, path string) ([]Stmt, error) {
	fields, ok := arg.(map[string]any)
	if !ok || fields["angle"] == nil {
		e, err := compileExpr(arg, path)
		if err != nil {
			return nil, err
		}
		return []Stmt{TurnCmd{Angle: e}}, nil
	}
	angle, err := compileExpr(fields["angle"], path+".angle")
	if err != nil {
		return nil, err
	}
	if fields["direction"] == "right" {
		angle = negate(angle)
	}
	return []Stmt{TurnCmd{Angle: angle}}, nil
}

func compileWait(arg any, path string) ([]Stmt, error) {
	fields, ok := arg.(map[string]any)
	if !ok || fields["seconds"] == nil {
		e, err := compileExpr(arg, path)
		if err != nil {
			return nil, err
		}
		return []Stmt{WaitCmd{Millis: e}}, nil
	}
	secs, err := compileExpr(fields["seconds"], path+".seconds")
	if err != nil {
		return nil, err
	}
	return []Stmt{WaitCmd{Millis: BinaryExpr{Op: OpMul, Left: secs, Right: Num{V: 1000}}}}, nil
}

func compileRepeat(arg any, path string) ([]Stmt, error) {
	fields, err := mapping(arg, path)
	if err != nil {
		return nil, err
	}
	times, err := compileExpr(fields["times"], path+".times")
	if err != nil {
		return nil, err
	}
	body, err := compileBlock(fields["do"], path+".do")
	if err != nil {
		return nil, err
	}
	return []Stmt{RepeatNode{Times: times, Body: body}}, nil
}

func compileIf(arg any, path string) ([]Stmt, error) {
	fields, err := mapping(arg, path)
	if err != nil {
		return nil, err
	}
	cond, err := compileExpr(fields["cond"], path+".cond")
	if err != nil {
		return nil, err
	}
	then, err := compileBlock(fields["then"], path+".then")
	if err != nil {
		return nil, err
	}
	els, err := compileBlock(fields["else"], path+".else")
	if err != nil {
		return nil, err
	}
	return []Stmt{IfNode{Cond: cond, Then: then, Else: els}}, nil
}

func compileLoop(arg any, path string, until bool) ([]Stmt, error) {
	fields, err := mapping(arg, path)
	if err != nil {
		return nil, err
	}
	cond, err := compileExpr(fields["cond"], path+".cond")
	if err != nil {
		return nil, err
	}
	body, err := compileBlock(fields["do"], path+".do")
	if err != nil {
		return nil, err
	}
	return []Stmt{WhileNode{Cond: cond, Until: until, Body: body}}, nil
}

// compileDriveUntil expands to an optional speed change followed by short
// moves repeated until the condition holds.
func compileDriveUntil(arg any, path string) ([]Stmt, error) {
	fields, err := mapping(arg, path)
	if err != nil {
		return nil, err
	}
	cond, err := compileExpr(fields["cond"], path+".cond")
	if err != nil {
		return nil, err
	}
	step := driveUntilStepCm
	if fields["direction"] == "backward" {
		step = -step
	}
	var out []Stmt
	if raw, ok := fields["speed"]; ok {
		speed, err := compileExpr(raw, path+".speed")
		if err != nil {
			return nil, err
		}
		out = append(out, SetSpeedCmd{Speed: speed})
	}
	loop := WhileNode{Cond: cond, Until: true, Body: []Stmt{MoveCmd{Distance: Num{V: step}}}}
	return append(out, loop), nil
}

func compileExpr(v any, path string) (Expr, error) {
	switch x := v.(type) {
	case bool:
		return Bool{V: x}, nil
	case string:
		return Str{V: x}, nil
	case int:
		return Num{V: float64(x)}, nil
	case int64:
		return Num{V: float64(x)}, nil
	case uint64:
		return Num{V: float64(x)}, nil
	case float64:
		return Num{V: x}, nil
	case map[string]any:
		return compileExprMap(x, path)
	case nil:
		return nil, invalidf(path, "missing expression")
	default:
		return nil, invalidf(path, "unsupported expression %T", v)
	}
}

func compileExprMap(m map[string]any, path string) (Expr, error) {
	if name, ok := m["sensor"].(string); ok {
		return SensorExpr{Name: name}, nil
	}
	if hex, ok := m["touching_color"].(string); ok {
		return TouchingColorExpr{Hex: hex}, nil
	}
	if inner, ok := m["not"]; ok {
		x, err := compileExpr(inner, path+".not")
		if err != nil {
			return nil, err
		}
		return NotExpr{X: x}, nil
	}
	op, ok := m["op"].(string)
	if !ok {
		return nil, invalidf(path, "unknown expression")
	}
	left, err := compileExpr(m["left"], path+".left")
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(m["right"], path+".right")
	if err != nil {
		return nil, err
	}
	return BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func mapping(v any, path string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalidf(path, "want a mapping")
	}
	return m, nil
}

func negate(e Expr) Expr {
	if n, ok := e.(Num); ok {
		return Num{V: -n.V}
	}
	return BinaryExpr{Op: OpSub, Left: Num{V: 0}, Right: e}
}

func invalidf(path, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + ": " + msg
	}
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}
