package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// AsmlensConfig represents configuration for the asmlens tool
type AsmlensConfig struct {
	Debug       bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	Dialect     string `json:"dialect" jsonschema:"title=Dialect,description=Assembly syntax (att or intel)"`
	DebugInfo   string `json:"debugInfo" jsonschema:"title=Debug Info,description=Source annotation verbosity (source or none)"`
	ShowBytes   bool   `json:"showBytes" jsonschema:"title=Show Bytes,description=Print raw instruction bytes as comments"`
	Slide       int64  `json:"slide" jsonschema:"title=Slide,description=Offset from stream addresses to debug-info addresses"`
	NoCollapse  bool   `json:"noCollapse" jsonschema:"title=No Collapse,description=Do not fold recursive inlined frames"`
	ProfilePath string `json:"profilePath" jsonschema:"title=Profile Path,description=Path for CPU profile output"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the asmlens configuration",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&AsmlensConfig{}), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Println(string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
