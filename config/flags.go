package config

// Flags are the switches every mission section carries.
type Flags struct {
	// Run enables the mission. A disabled mission is skipped by the dispatcher.
	Run bool
	// Log writes the mission logfile.
	Log bool
	// Print echoes mission log lines to the console.
	Print bool
}

// Flags reads run, log and print. Each key missing from the section is written back as true so
// the file documents it.
func (sec *Section) Flags() Flags {
	for _, key := range []string{"run", "log", "print"} {
		if !sec.Has(key) {
			sec.Set(key, true)
		}
	}
	return Flags{
		Run:   sec.Bool("run", true),
		Log:   sec.Bool("log", true),
		Print: sec.Bool("print", true),
	}
}
