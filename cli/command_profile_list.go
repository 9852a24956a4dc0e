package cli

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// commandProfileList implements `robocurse profile list`, a debug aid that
// prints the parsed, validated profiles without running anything.
type commandProfileList struct{}

func (c *commandProfileList) setup(svc appServices, parent commandParent) {
	profileCmd := parent.Command("profile", "Inspect configured profiles.")
	listCmd := profileCmd.Command("list", "Print every parsed profile.")
	listCmd.Action(func(*kingpin.ParseContext) error {
		cfg, err := svc.loadConfig()
		if err != nil {
			errorColor.Fprintf(svc.stderr(), "robocurse: %v\n", err) // nolint:errcheck
			svc.setExitCode(1)

			return nil
		}

		for _, p := range cfg.Profiles {
			fmt.Fprintf(svc.stdout(), "%-20s %v -> %v (maxDepth=%d, maxSizeBytes=%d, maxFiles=%d)\n", // nolint:errcheck
				p.Name, p.Source, p.Destination, p.Bounds.MaxDepth, p.Bounds.MaxSizeBytes, p.Bounds.MaxFiles)
		}

		return nil
	})
}
