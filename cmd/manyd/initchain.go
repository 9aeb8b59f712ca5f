package main

import (
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func initChainCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "init-chain",
		Short: "run every registered migration's initializer at genesis and commit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInitChain(env)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay config name (e.g. production)")
	return cmd
}

func runInitChain(env string) error {
	n, err := setupNode(env)
	if err != nil {
		return err
	}
	defer n.store.Close()

	if err := n.migrations.RunInitializers(n.store, 0); err != nil {
		return fmt.Errorf("manyd: init-chain: %w", err)
	}
	root, err := n.store.Commit()
	if err != nil {
		return fmt.Errorf("manyd: init-chain: commit: %w", err)
	}
	logrus.Infof("manyd: init-chain complete, root=%s", hex.EncodeToString(root[:]))
	return nil
}
