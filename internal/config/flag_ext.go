package config

import "strconv"

// strFlag and intFlag remember whether they were set on the command line,
// so that a config file value only applies when the flag is absent.

type strFlag struct {
	v   string
	set bool
}

func (f *strFlag) String() string     { return f.v }
func (f *strFlag) Set(s string) error { f.v, f.set = s, true; return nil }
func (f *strFlag) Type() string       { return "string" }

type intFlag struct {
	v   int
	set bool
}

func (f *intFlag) String() string { return strconv.Itoa(f.v) }
func (f *intFlag) Set(s string) error {
	i, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.v, f.set = i, true
	return nil
}
func (f *intFlag) Type() string { return "int" }
