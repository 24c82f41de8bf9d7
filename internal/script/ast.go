// Package script is the interpreter for robot programs: a tree of typed
// command nodes, decoded from YAML or JSON documents and executed against the
// robot command interface with a suspension point at every leaf command.
package script

// Program is a compiled robot program.
type Program struct {
	Name      string
	Challenge string
	Body      []Stmt
}

// Stmt is a statement node.
type Stmt interface{ stmt() }

// Expr is an expression node.
type Expr interface{ expr() }

// MoveCmd drives Distance centimetres; negative drives backwards.
type MoveCmd struct{ Distance Expr }

// TurnCmd turns Angle degrees; positive turns left.
type TurnCmd struct{ Angle Expr }

// WaitCmd waits Millis milliseconds.
type WaitCmd struct{ Millis Expr }

type SetSpeedCmd struct{ Speed Expr }

type SetLedCmd struct {
	Side  string
	Color Expr
}

type StopCmd struct{}

type RepeatNode struct {
	Times Expr
	Body  []Stmt
}

type IfNode struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// WhileNode loops while Cond holds, or while it does not when Until is set.
type WhileNode struct {
	Cond  Expr
	Until bool
	Body  []Stmt
}

func (MoveCmd) stmt()     {}
func (TurnCmd) stmt()     {}
func (WaitCmd) stmt()     {}
func (SetSpeedCmd) stmt() {}
func (SetLedCmd) stmt()   {}
func (StopCmd) stmt()     {}
func (RepeatNode) stmt()  {}
func (IfNode) stmt()      {}
func (WhileNode) stmt()   {}

// Sensor names readable by SensorExpr.
const (
	SensorDistance      = "distance"
	SensorTouch         = "touch"
	SensorGyro          = "gyro"
	SensorColor         = "color"
	SensorCircumference = "circumference"
)

// Binary operators.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
	OpMod = "%"
	OpLt  = "<"
	OpLe  = "<="
	OpGt  = ">"
	OpGe  = ">="
	OpEq  = "=="
	OpNe  = "!="
	OpAnd = "and"
	OpOr  = "or"
)

type Num struct{ V float64 }

type Bool struct{ V bool }

type Str struct{ V string }

// SensorExpr reads one of the Sensor* values.
type SensorExpr struct{ Name string }

// TouchingColorExpr reports whether the floor under the colour sensor is Hex.
type TouchingColorExpr struct{ Hex string }

type NotExpr struct{ X Expr }

type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

func (Num) expr()               {}
func (Bool) expr()              {}
func (Str) expr()               {}
func (SensorExpr) expr()        {}
func (TouchingColorExpr) expr() {}
func (NotExpr) expr()           {}
func (BinaryExpr) expr()        {}
