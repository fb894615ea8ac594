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

	"github.com/radondb/xshard/executor"
	"github.com/radondb/xshard/statement"
	"github.com/radondb/xshard/xcontext"

	"github.com/spf13/cobra"
)

// NewRouteCommand creates new RouteCommand.
func NewRouteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "route and rewrite a statement without running it",
		RunE:  routeCommandFn,
	}
	addConfigFlag(cmd)
	addStatementFlag(cmd)
	return cmd
}

func loadStatement(path string) (*xcontext.ExecutionContext, error) {
	env, err := statement.LoadEnvelope(path)
	if err != nil {
		return nil, err
	}
	stmt, err := env.Statement()
	if err != nil {
		return nil, err
	}
	return xcontext.NewExecutionContext(env.SQL, env.Params, stmt)
}

func routeCommandFn(cmd *cobra.Command, args []string) error {
	r, err := loadRules(localFlags.config)
	if err != nil {
		return err
	}
	ctx, err := loadStatement(localFlags.statement)
	if err != nil {
		return err
	}
	e := executor.NewExecutor(log, r.sharding, r.encrypt, nil)
	if err := e.Prepare(ctx); err != nil {
		return err
	}

	var rows [][]string
	for _, u := range ctx.Units {
		rows = append(rows, []string{u.DataSource, u.SQL, fmt.Sprintf("%v", u.Params)})
	}
	fmt.Fprint(cmd.OutOrStdout(), tabulate([]string{"data-source", "sql", "params"}, rows))
	return nil
}
