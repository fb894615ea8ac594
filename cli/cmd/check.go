/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates new CheckCommand.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "compile the config rules and show the data nodes of every table",
		RunE:  checkCommandFn,
	}
	addConfigFlag(cmd)
	return cmd
}

func checkCommandFn(cmd *cobra.Command, args []string) error {
	r, err := loadRules(localFlags.config)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, t := range r.sharding.TableRules() {
		nodes := make([]string, 0, len(t.DataNodes))
		for _, n := range t.DataNodes {
			nodes = append(nodes, n.String())
		}
		key := ""
		if t.KeyGenerator != nil {
			key = fmt.Sprintf("%s(%s)", t.KeyColumn, t.KeyGenerator.Type())
		}
		rows = append(rows, []string{
			t.LogicTable,
			strings.Join(nodes, ","),
			t.DatabaseStrategy.Type(),
			t.TableStrategy.Type(),
			strings.Join(t.ShardingColumns(), ","),
			key,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "data-sources:%v\n", r.sharding.DataSources())
	fmt.Fprint(out, tabulate([]string{"table", "data-nodes", "database-strategy", "table-strategy", "sharding-columns", "key"}, rows))
	return nil
}
