// Command pageshell is a minimal CLI driver for the session runtime: it
// loads a config, boots one session, creates one page, navigates it to a
// URL, and pumps Wait until the navigation settles.
//
// Grounded on 5u5urrus-PathFinder/main.go's cobra flag-registration style.
// Its own console output intentionally uses logrus+logrus-prefixed-
// formatter, matching that CLI-tool precedent, rather than the zap logger
// the engine packages use internally for structured logs — a CLI's
// human-facing console and a long-running engine's structured log stream
// are different ambient concerns.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/kallowynd/pageruntime/config"
	"github.com/kallowynd/pageruntime/domtree"
	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/kallowynd/pageruntime/httpfetch/fasthttpclient"
	"github.com/kallowynd/pageruntime/jsengine"
	"github.com/kallowynd/pageruntime/jsengine/gojaengine"
	"github.com/kallowynd/pageruntime/pagelog"
	"github.com/kallowynd/pageruntime/session"
)

const (
	cliName = "pageshell"
	version = "v0.1"
)

var log *logrus.Logger

func init() {
	log = &logrus.Logger{
		Out:   os.Stderr,
		Level: logrus.InfoLevel,
		Formatter: &prefixed.TextFormatter{
			ForceColors:     true,
			ForceFormatting: true,
		},
	}
}

var commands = &cobra.Command{
	Use:  cliName,
	Long: fmt.Sprintf("Headless page runtime shell - %s", version),
	Run:  run,
}

func main() {
	commands.Flags().StringP("url", "u", "", "URL to navigate the page to")
	commands.Flags().StringP("config", "c", "", "Path to a runtime config YAML file")
	commands.Flags().String("robots-user-agent", "", "Override the configured robots.txt user-agent")
	commands.Flags().Int64P("timeout", "t", 0, "Wait timeout in milliseconds (0 = use config's HTTP tick timeout)")
	commands.Flags().BoolP("verbose", "v", false, "Verbose logging")
	commands.Flags().SortFlags = false

	if err := commands.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		log.Error("--url is required")
		os.Exit(1)
	}

	cfg := config.Default()
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Errorf("loading config: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if ua, _ := cmd.Flags().GetString("robots-user-agent"); ua != "" {
		cfg.Robots.UserAgent = ua
	}

	logger, err := pagelog.New(cfg.Logging)
	if err != nil {
		log.Errorf("building engine logger: %v", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	sess := session.New(
		cfg,
		session.NoopNotifier{},
		&htmlStubDelegate{},
		func() jsengine.Engine { return gojaengine.New() },
		func() httpfetch.Client {
			return fasthttpclient.New(cfg.HTTP.ReadTimeout.Get(), cfg.HTTP.WriteTimeout.Get(), logger)
		},
		logger,
	)

	if _, err := sess.CreatePage(); err != nil {
		log.Errorf("creating page: %v", err)
		os.Exit(1)
	}

	if err := sess.Navigate(url, session.NavigateOptions{}); err != nil {
		log.Errorf("navigating to %s: %v", url, err)
		os.Exit(1)
	}

	timeoutMs, _ := cmd.Flags().GetInt64("timeout")
	for {
		result, err := sess.Wait(timeoutMs)
		if err != nil {
			log.Errorf("navigation failed: %v", err)
			os.Exit(1)
		}
		if result == session.NoPage {
			log.Info("page closed, exiting")
			return
		}
		if p := sess.Page(); p != nil && p.Document != nil {
			log.Infof("loaded %s", p.URL)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// htmlStubDelegate stands in for the HTML parser/DOM-builder collaborator
// this module never implements: it wraps every fetched body in an empty
// document so the CLI has something to navigate against end to end.
type htmlStubDelegate struct{}

func (htmlStubDelegate) BuildDocument(_ string, _ []byte) (*domtree.Document, error) {
	return domtree.NewDocument(), nil
}
