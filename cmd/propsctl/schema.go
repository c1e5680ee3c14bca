package main

import (
	"fmt"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/schema/openapi"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export the declared schema",
	Long:  `Prints the schema document as flat field descriptors or as an OpenAPI document.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		version, _ := cmd.Flags().GetString("openapi-version")
		return runSchema(cmd, format, version)
	},
}

func init() {
	schemaCmd.Flags().String("format", string(props.SchemaFormatDescriptors), "Export format (descriptors, openapi)")
	schemaCmd.Flags().String("openapi-version", "3.0.3", "OpenAPI version for the openapi format")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, format, version string) error {
	doc, err := loadDocument(cmd)
	if err != nil {
		return err
	}
	enc, err := newEncoder(cmd)
	if err != nil {
		return err
	}

	var generator props.SchemaGenerator
	switch props.SchemaFormat(format) {
	case props.SchemaFormatDescriptors:
		generator = props.DefaultSchemaGenerator()
	case props.SchemaFormatOpenAPI:
		generator = openapi.NewGenerator(
			openapi.WithOpenAPIVersion(version),
			openapi.WithInfo(doc.Component+" props", ""),
			openapi.WithRootComponent(componentSchemaName(doc.Component)),
		)
	default:
		return fmt.Errorf("invalid schema format %q", format)
	}

	out, err := generator.Generate(doc.Schema)
	if err != nil {
		return err
	}
	return enc.encode(out.Document)
}

func componentSchemaName(component string) string {
	if component == "" {
		return "Props"
	}
	return component + "Props"
}
