// Command jetindex is a small demonstration CLI over the table creator and
// index engine: create-table builds a table definition with its indexes,
// inspect prints one back.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arlowe/jetindex/internal/catalog"
	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/indexdef"
	"github.com/arlowe/jetindex/internal/storage"
	"github.com/arlowe/jetindex/internal/table"
	"github.com/arlowe/jetindex/internal/tdef"
)

type createTableFlags struct {
	dbPath  string
	columns []string
	index   []string
	jet3    bool
}

type inspectFlags struct {
	dbPath string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "jetindex",
		Short: "Inspect and build Jet-family secondary indexes and table definitions",
	}

	rootCmd.AddCommand(createTableCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func createTableCmd() *cobra.Command {
	flags := &createTableFlags{}
	cmd := &cobra.Command{
		Use:   "create-table <name>",
		Short: "Create a table definition, with optional indexes, in a database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCreateTable(args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.dbPath, "db", "", "path to the database file (created if missing)")
	cmd.Flags().StringArrayVar(&flags.columns, "column", nil, "column spec NAME:TYPE, repeatable")
	cmd.Flags().StringArrayVar(&flags.index, "index", nil, "index spec NAME:COL[,COL...][:pk], repeatable")
	cmd.Flags().BoolVar(&flags.jet3, "jet3", false, "use the legacy Jet3 format instead of Jet4")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("column")

	return cmd
}

func runCreateTable(name string, flags *createTableFlags) error {
	fd := &format.Jet4
	if flags.jet3 {
		fd = &format.Jet3
	}

	ps, err := storage.Open(flags.dbPath, fd.PageSize)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer ps.Close()

	cat, err := catalog.Open(ps, fd)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	columnSpecs, err := parseColumnSpecs(flags.columns)
	if err != nil {
		return err
	}
	indexSpecs, err := parseIndexSpecs(flags.index)
	if err != nil {
		return err
	}

	creator := table.NewCreator(ps, fd, cat, name, columnSpecs, indexSpecs, table.WithLogger(logrus.StandardLogger()))
	tdefPage, err := creator.CreateTable()
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	fmt.Printf("created table %q at page %d\n", name, tdefPage)
	return nil
}

func parseColumnSpecs(raw []string) ([]table.ColumnSpec, error) {
	specs := make([]table.ColumnSpec, 0, len(raw))
	for _, s := range raw {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid column spec %q, want NAME:TYPE", s)
		}
		typ, err := parseDataType(parts[1])
		if err != nil {
			return nil, err
		}
		specs = append(specs, table.ColumnSpec{Name: parts[0], Type: typ})
	}
	return specs, nil
}

func parseDataType(s string) (column.DataType, error) {
	switch strings.ToUpper(s) {
	case "TEXT":
		return column.TEXT, nil
	case "MEMO":
		return column.MEMO, nil
	case "INT":
		return column.INT, nil
	case "SHORT":
		return column.SHORT, nil
	case "LONG":
		return column.LONG, nil
	case "BYTE":
		return column.BYTE, nil
	case "FLOAT":
		return column.FLOAT, nil
	case "DOUBLE":
		return column.DOUBLE, nil
	case "DATETIME":
		return column.DATETIME, nil
	case "MONEY":
		return column.MONEY, nil
	case "BOOLEAN":
		return column.BOOLEAN, nil
	case "GUID":
		return column.GUID, nil
	case "NUMERIC":
		return column.NUMERIC, nil
	case "OLE":
		return column.OLE, nil
	case "BINARY":
		return column.BINARY, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

func parseIndexSpecs(raw []string) ([]*indexdef.Descriptor, error) {
	specs := make([]*indexdef.Descriptor, 0, len(raw))
	for _, s := range raw {
		parts := strings.Split(s, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid index spec %q, want NAME:COL[,COL...][:pk]", s)
		}

		desc := &indexdef.Descriptor{Name: parts[0]}
		for _, col := range strings.Split(parts[1], ",") {
			desc.Columns = append(desc.Columns, indexdef.ColumnRef{ColumnName: col, Ascending: true})
		}
		if len(parts) == 3 && parts[2] == "pk" {
			desc.PrimaryKey = true
		}
		specs = append(specs, desc)
	}
	return specs, nil
}

func inspectCmd() *cobra.Command {
	flags := &inspectFlags{}
	cmd := &cobra.Command{
		Use:   "inspect <table>",
		Short: "Print a registered table's definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInspect(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "path to the database file")
	cmd.MarkFlagRequired("db")
	return cmd
}

func runInspect(name string, flags *inspectFlags) error {
	ps, err := storage.Open(flags.dbPath, format.Jet4.PageSize)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer ps.Close()

	cat, err := catalog.Open(ps, &format.Jet4)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	tdefPage, found := cat.TableDefinitionPage(name)
	if !found {
		return fmt.Errorf("table %q not found", name)
	}

	def, err := tdef.Read(ps, &format.Jet4, tdefPage)
	if err != nil {
		return fmt.Errorf("read table definition: %w", err)
	}

	fmt.Printf("table %q (page %d)\n", def.Name, tdefPage)
	for _, col := range def.Columns {
		fmt.Printf("  %d: %s %s\n", col.Number, col.Name, col.Type)
	}
	fmt.Printf("  %d index(es)\n", len(def.IndexSlots))
	return nil
}
