/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/radondb/xshard/backend"
	"github.com/radondb/xshard/executor"
	"github.com/radondb/xshard/monitor"

	"github.com/spf13/cobra"
)

// NewExecCommand creates new ExecCommand.
func NewExecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "run a statement against the configured data sources",
		RunE:  execCommandFn,
	}
	addConfigFlag(cmd)
	addStatementFlag(cmd)
	cmd.Flags().BoolVar(&localFlags.metrics, "metrics", false, "--metrics show the counters after the run")
	return cmd
}

func execCommandFn(cmd *cobra.Command, args []string) error {
	r, err := loadRules(localFlags.config)
	if err != nil {
		return err
	}
	ctx, err := loadStatement(localFlags.statement)
	if err != nil {
		return err
	}

	scatter := backend.NewScatter(log)
	if err := scatter.Init(r.conf.DataSources); err != nil {
		return err
	}
	defer scatter.Close()

	e := executor.NewExecutor(log, r.sharding, r.encrypt, scatter)
	qr, err := e.Execute(context.Background(), ctx.SQL, ctx.Params, ctx.Statement)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(qr.Fields) > 0 {
		headers := make([]string, 0, len(qr.Fields))
		for _, f := range qr.Fields {
			headers = append(headers, f.Name)
		}
		rows := make([][]string, 0, len(qr.Rows))
		for _, row := range qr.Rows {
			cells := make([]string, 0, len(row))
			for _, v := range row {
				if v.IsNull() {
					cells = append(cells, "NULL")
					continue
				}
				cells = append(cells, v.ToString())
			}
			rows = append(rows, cells)
		}
		fmt.Fprint(out, tabulate(headers, rows))
	}
	fmt.Fprintf(out, "rows affected: %d\n", qr.RowsAffected)

	if localFlags.metrics {
		samples, err := monitor.Snapshot()
		if err != nil {
			return err
		}
		var rows [][]string
		for _, s := range samples {
			if strings.HasPrefix(s.Name, "go_") || strings.HasPrefix(s.Name, "process_") || strings.HasPrefix(s.Name, "promhttp_") {
				continue
			}
			rows = append(rows, []string{s.Name, s.Labels, strconv.FormatFloat(s.Value, 'f', -1, 64)})
		}
		fmt.Fprint(out, tabulate([]string{"metric", "labels", "value"}, rows))
	}
	return nil
}
