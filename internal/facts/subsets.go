// internal/facts/subsets.go
package facts

import (
	"log"
	"regexp"
	"strconv"

	"github.com/netauto/hivectl/internal/cli"
)

// Field patterns for HiveOS show output. Version lines look like
// "Version:            HiveOS 6.5r3 build-...", hw-info carries
// "Serial number:      02501703160299", and the running config names the
// host with a bare "hostname <name>" line.
var (
	versionRe  = regexp.MustCompile(`Version:\s+\w+\s(\S+)\s`)
	modelRe    = regexp.MustCompile(`Platform:\s*(\S+)`)
	serialRe   = regexp.MustCompile(`Serial number:\s+(\w+)`)
	hostnameRe = regexp.MustCompile(`(?m)^hostname\s+(\S+)$`)

	filesystemRe = regexp.MustCompile(`(?m)^(/dev\S*|tmpfs)\b`)
	cpuTotalRe   = regexp.MustCompile(`(?m)^CPU total \w+:\s+(\S+)`)
	cpuUserRe    = regexp.MustCompile(`CPU user \w+:\s+(\S+)`)
	cpuSysRe     = regexp.MustCompile(`CPU system \w+:\s+(\S+)`)
	memTotalRe   = regexp.MustCompile(`Total Memory:\s+(\d+)`)
	memFreeRe    = regexp.MustCompile(`Free Memory:\s+(\d+)`)
	memUsedRe    = regexp.MustCompile(`Used Memory:\s+(\d+)`)
)

var defaultSubset = &subset{
	commands: []cli.Command{
		{Text: "show version", Depaginate: true},
		{Text: "show hw-info", Depaginate: true},
		{Text: "show run | include hostname", Depaginate: true},
	},
	populate: func(responses []string, facts FactSet) {
		if data := responses[0]; data != "" {
			setMatch(facts, "version", versionRe, data)
			setMatch(facts, "model", modelRe, data)
		}
		if data := responses[1]; data != "" {
			setMatch(facts, "serialnum", serialRe, data)
		}
		if data := responses[2]; data != "" {
			setMatch(facts, "hostname", hostnameRe, data)
		}
	},
}

var hardwareSubset = &subset{
	commands: []cli.Command{
		{Text: "show system disk-info", Depaginate: true},
		{Text: "show cpu", Depaginate: true},
		{Text: "show memory", Depaginate: true},
	},
	populate: func(responses []string, facts FactSet) {
		if data := responses[0]; data != "" {
			var filesystems []string
			for _, m := range filesystemRe.FindAllStringSubmatch(data, -1) {
				filesystems = append(filesystems, m[1])
			}
			if filesystems == nil {
				log.Printf("facts: filesystems not found in device output")
			} else {
				facts["filesystems"] = filesystems
			}
		}
		if data := responses[1]; data != "" {
			setMatch(facts, "processor_total", cpuTotalRe, data)
			setMatch(facts, "processor_user", cpuUserRe, data)
			setMatch(facts, "processor_sys", cpuSysRe, data)
		}
		if data := responses[2]; data != "" {
			setIntMatch(facts, "memtotal_kb", memTotalRe, data)
			setIntMatch(facts, "memfree_kb", memFreeRe, data)
			setIntMatch(facts, "memused_kb", memUsedRe, data)
		}
	},
}

var configSubset = &subset{
	commands: []cli.Command{
		{Text: "show config running", Depaginate: true},
	},
	populate: func(responses []string, facts FactSet) {
		if data := responses[0]; data != "" {
			facts["config"] = data
		}
	},
}

// setMatch stores the pattern's first capture group under key. A fact
// that cannot be parsed is logged and left out, never fabricated.
func setMatch(facts FactSet, key string, re *regexp.Regexp, data string) {
	m := re.FindStringSubmatch(data)
	if m == nil {
		log.Printf("facts: %s not found in device output", key)
		return
	}
	facts[key] = m[1]
}

// setIntMatch is setMatch for numeric fields.
func setIntMatch(facts FactSet, key string, re *regexp.Regexp, data string) {
	m := re.FindStringSubmatch(data)
	if m == nil {
		log.Printf("facts: %s not found in device output", key)
		return
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		log.Printf("facts: %s is not numeric: %q", key, m[1])
		return
	}
	facts[key] = n
}
