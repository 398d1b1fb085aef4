// internal/platform/hiveos.go
package platform

import "regexp"

// HiveOS is the builtin definition for Aerohive HiveOS access points and
// routers. Prompt and error patterns match HiveOS 6.x/15.x CLI output;
// "console page 0" turns off screen paging for the session and
// "console page 22" restores the factory setting.
var HiveOS = &Definition{
	Name:           "hiveos",
	Prompt:         regexp.MustCompile(`[\r\n]?[\w\+\-\.:\/\[\]]+(?:\([^\)]+\)){0,3}(?:[>#]) ?$`),
	Error:          regexp.MustCompile(`(?i)(invalid|ambigious|ambiguous|incomplete) (input|command)`),
	More:           regexp.MustCompile(`--More--`),
	Continuation:   " ",
	PagingOff:      "console page 0",
	PagingRestore:  "console page 22",
	ElevateCommand: "enable",
	PasswordPrompt: regexp.MustCompile(`(?i)password:\s*$`),
	ConfigEnter:    "configure",
	ConfigExit:     "exit",
	ConfigSources:  []string{"running", "backup", "bootstrap", "current", "default", "failed", "version"},
}

func init() {
	if err := Register(HiveOS); err != nil {
		panic(err)
	}
}
