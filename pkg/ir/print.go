// Package ir - Textual IR listing
// Design: LLVM-like syntax, one line per instruction
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

var opNames = [...]string{
	OpAdd: "fadd",
	OpSub: "fsub",
	OpMul: "fmul",
	OpDiv: "fdiv",
	OpLt:  "fcmp.ult",
}

func (op Op) String() string {
	if int(op) >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// String renders the module in an LLVM-like textual form.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", m.Name)
	for _, fn := range m.Functions {
		sb.WriteByte('\n')
		sb.WriteString(fn.String())
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, name := range paramNames(f.Params) {
		params[i] = "double %" + name
	}
	sig := fmt.Sprintf("double @%s(%s)", f.Name, strings.Join(params, ", "))

	if f.IsDeclaration() {
		sb.WriteString("declare " + sig + "\n")
		return sb.String()
	}

	sb.WriteString("define " + sig + " {\n")
	for _, b := range f.Blocks {
		sb.WriteString(b.Label + ":\n")
		for _, inst := range b.Insts {
			sb.WriteString("  " + formatInst(inst) + "\n")
		}
		if ret, ok := b.Term.(*Return); ok {
			sb.WriteString("  ret double " + formatValue(ret.Value) + "\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// paramNames makes parameter names unique by suffixing repeats with a
// counter, so (a a) prints as %a, %a1.
func paramNames(params []*Param) []string {
	names := make([]string, len(params))
	used := make(map[string]bool, len(params))
	for i, p := range params {
		name := p.Name
		for n := 1; used[name]; n++ {
			name = p.Name + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func formatInst(inst Inst) string {
	switch i := inst.(type) {
	case *BinOp:
		return fmt.Sprintf("%s = %s double %s, %s", formatValue(i.Dest), i.Op, formatValue(i.L), formatValue(i.R))
	case *Call:
		args := make([]string, len(i.Args))
		for j, a := range i.Args {
			args[j] = "double " + formatValue(a)
		}
		return fmt.Sprintf("%s = call double @%s(%s)", formatValue(i.Dest), i.Function, strings.Join(args, ", "))
	}
	return fmt.Sprintf("<%T>", inst)
}

func formatValue(v Value) string {
	switch v := v.(type) {
	case *Temp:
		return fmt.Sprintf("%%%d", v.ID)
	case *Param:
		return "%" + v.Name
	case *Const:
		return fmt.Sprintf("%e", v.Val)
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("<%T>", v)
}
