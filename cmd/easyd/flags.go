package main

// GlobalFlags holds persistent flags shared by every subcommand.
// Empty values fall back to the config file and EASYD_* variables.
type GlobalFlags struct {
	ConfigPath string
	Registry   string
	LogLevel   string
}

type AddFlags struct {
	Name    string
	Program string
	Args    []string
	Output  string
}

type DeleteFlags struct {
	Force bool
}

type ListFlags struct {
	All  bool
	JSON bool
}
