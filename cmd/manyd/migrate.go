package main

import (
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var env string
	var height uint64
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run every registered migration's update hook for a block height and commit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(env, height)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay config name (e.g. production)")
	cmd.Flags().Uint64Var(&height, "height", 0, "block height to run updates for")
	return cmd
}

func runMigrate(env string, height uint64) error {
	n, err := setupNode(env)
	if err != nil {
		return err
	}
	defer n.store.Close()

	if err := n.migrations.RunUpdates(n.store, height); err != nil {
		return fmt.Errorf("manyd: migrate: %w", err)
	}
	root, err := n.store.Commit()
	if err != nil {
		return fmt.Errorf("manyd: migrate: commit: %w", err)
	}
	logrus.Infof("manyd: migrate to height %d complete, root=%s", height, hex.EncodeToString(root[:]))
	return nil
}
