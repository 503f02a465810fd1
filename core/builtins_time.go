package scheme

import (
	"time"
)

// Time primitives work in whole unix seconds. Layouts are Go reference
// layouts ("2006-01-02T15:04:05Z07:00").
func timePrimitives() []*Primitive {
	return []*Primitive{
		{Name: "current-time", MinArgs: 0, MaxArgs: 0, Fn: builtinCurrentTime},
		{Name: "format-time", MinArgs: 2, MaxArgs: 2, Fn: builtinFormatTime},
		{Name: "parse-time", MinArgs: 2, MaxArgs: 2, Fn: builtinParseTime},
		{Name: "add-duration", MinArgs: 2, MaxArgs: 2, Fn: builtinAddDuration},
	}
}

func unixArg(op string, v Value) (int64, error) {
	n, err := numArg(op, v)
	if err != nil {
		return 0, err
	}
	secs, ok := n.Int64()
	if !ok {
		return 0, typeErr(op, "integer seconds", v)
	}
	return secs, nil
}

func stringArg(op string, v Value) (string, error) {
	if v.Kind != ValString {
		return "", typeErr(op, "String", v)
	}
	return v.Str, nil
}

func builtinCurrentTime(st *State, args []Value) (Value, error) {
	return IntVal(time.Now().Unix()), nil
}

func builtinFormatTime(st *State, args []Value) (Value, error) {
	secs, err := unixArg("format-time", args[0])
	if err != nil {
		return Value{}, err
	}
	layout, err := stringArg("format-time", args[1])
	if err != nil {
		return Value{}, err
	}
	return StringVal(time.Unix(secs, 0).UTC().Format(layout)), nil
}

func builtinParseTime(st *State, args []Value) (Value, error) {
	value, err := stringArg("parse-time", args[0])
	if err != nil {
		return Value{}, err
	}
	layout, err := stringArg("parse-time", args[1])
	if err != nil {
		return Value{}, err
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return Value{}, &UserError{Message: "parse-time: " + err.Error()}
	}
	return IntVal(t.Unix()), nil
}

// builtinAddDuration takes a duration string such as "1h30m".
func builtinAddDuration(st *State, args []Value) (Value, error) {
	secs, err := unixArg("add-duration", args[0])
	if err != nil {
		return Value{}, err
	}
	s, err := stringArg("add-duration", args[1])
	if err != nil {
		return Value{}, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Value{}, &UserError{Message: "add-duration: " + err.Error()}
	}
	return IntVal(time.Unix(secs, 0).Add(d).Unix()), nil
}
