package model

import "fmt"

// ParseMethodDesc splits a method descriptor into argument and return types.
func ParseMethodDesc(desc string) (args []string, ret string, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("model: bad method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldTypeLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("model: bad method descriptor %q: %w", desc, err)
		}
		args = append(args, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("model: unterminated method descriptor %q", desc)
	}
	ret = desc[i+1:]
	if ret != "V" {
		if n, err := fieldTypeLen(ret); err != nil || n != len(ret) {
			return nil, "", fmt.Errorf("model: bad return type in %q", desc)
		}
	}
	return args, ret, nil
}

func fieldTypeLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("truncated type %q", s)
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		for j := i + 1; j < len(s); j++ {
			if s[j] == ';' {
				return j + 1, nil
			}
		}
		return 0, fmt.Errorf("unterminated class type %q", s)
	}
	return 0, fmt.Errorf("unknown type %q", s)
}

// TypeSize returns the stack slots a value of type t occupies.
func TypeSize(t string) int {
	switch t {
	case "V", "":
		return 0
	case "J", "D":
		return 2
	}
	return 1
}

// ReturnType returns the return type of a method descriptor, or "" if malformed.
func ReturnType(desc string) string {
	_, ret, err := ParseMethodDesc(desc)
	if err != nil {
		return ""
	}
	return ret
}

// ReturnOpcode returns the xRETURN opcode for type t.
func ReturnOpcode(t string) int {
	switch t {
	case "V":
		return RETURN
	case "J":
		return LRETURN
	case "F":
		return FRETURN
	case "D":
		return DRETURN
	case "Z", "B", "C", "S", "I":
		return IRETURN
	}
	return ARETURN
}

// LoadOpcode returns the xLOAD opcode for type t.
func LoadOpcode(t string) int {
	switch t {
	case "J":
		return LLOAD
	case "F":
		return FLOAD
	case "D":
		return DLOAD
	case "Z", "B", "C", "S", "I":
		return ILOAD
	}
	return ALOAD
}

// ObjectType returns the internal name of a class type descriptor "Lname;".
func ObjectType(desc string) (string, bool) {
	if len(desc) < 3 || desc[0] != 'L' || desc[len(desc)-1] != ';' {
		return "", false
	}
	return desc[1 : len(desc)-1], true
}

// ClassDesc returns the type descriptor of an internal class name.
func ClassDesc(name string) string { return "L" + name + ";" }
