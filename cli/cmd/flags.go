/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package cmd

import (
	"bytes"
	"strings"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/encrypt"
	"github.com/radondb/xshard/keygen"
	"github.com/radondb/xshard/router"

	"github.com/bndr/gotabulate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/xelabs/go-mysqlstack/xlog"
)

var (
	log        = xlog.NewStdLog(xlog.Level(xlog.INFO))
	localFlags = LocalFlags{}
)

// LocalFlags are flags that defined for local.
type LocalFlags struct {
	config    string
	statement string
	metrics   bool
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&localFlags.config, "config", "", "--config=[path to json or yaml]")
}

func addStatementFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&localFlags.statement, "statement", "", "--statement=[path to json or yaml statement]")
}

// rules holds what a config compiles to.
type rules struct {
	conf     *config.Config
	sharding *router.ShardingRule
	encrypt  *encrypt.Rule
}

func loadRules(path string) (*rules, error) {
	if path == "" {
		return nil, errors.New("cli.config.can.not.be.empty")
	}
	conf, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log.SetLevel(conf.Log.Level)
	sharding, err := router.NewShardingRule(log, conf, router.NewAlgorithmRegistry(), keygen.NewRegistry())
	if err != nil {
		return nil, err
	}
	encryptRule, err := encrypt.NewRule(log, conf.Encrypt, encrypt.NewRegistry())
	if err != nil {
		return nil, err
	}
	return &rules{conf: conf, sharding: sharding, encrypt: encryptRule}, nil
}

func tabulate(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return strings.Join(headers, "\t") + "\n(empty)\n"
	}
	t := gotabulate.Create(rows)
	t.SetHeaders(headers)
	t.SetAlign("left")
	return t.Render("grid")
}

func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	_, err = root.ExecuteC()
	return buf.String(), err
}
