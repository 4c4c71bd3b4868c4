package app

import (
	"fmt"
	"os"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	configDir   string
	env         string
	createTable bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the counter service",
		Long: `Start the counter service. The configuration is read from common.yaml and
conf_<env>.yaml under the config dir, which defaults to $COUNTER_WORK_DIR/conf.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(opts)
		},
	}
	cmd.Flags().StringVar(&opts.configDir, "config-dir", "", "Directory of the configuration files")
	cmd.Flags().StringVar(&opts.env, "env", envOrDefault("COUNTER_ENV", c.EnvDevelopment), "Runtime environment, selects conf_<env>.yaml")
	cmd.Flags().BoolVar(&opts.createTable, "create-table", false, "Create the item table when it does not exist")
	return cmd
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runServe(opts *serveOptions) error {
	conf, err := LoadServiceConfig(c.FileLoader, ConfigDir(opts.configDir), opts.env)
	if err != nil {
		return err
	}
	defer c.SyncLog()

	server, err := NewServer(conf, BuildOption{CreateTable: opts.createTable})
	if err != nil {
		return fmt.Errorf("build server fail: %w", err)
	}
	if err = server.Init(); err != nil {
		return err
	}
	if err = server.Start(); err != nil {
		server.Stop()
		return err
	}
	c.Infof("counterd started,env:%s,addr:%s", opts.env, conf.HTTP.Addr)

	hook := c.NewShutdownhook()
	hook.AddHook(server.Stop)
	hook.WaitShutdown()
	c.Infof("counterd stopped")
	return nil
}
