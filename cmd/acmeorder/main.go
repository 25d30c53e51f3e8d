// acmeorder provides a command-line shell for creating, finalizing and
// collecting ACME orders, including selecting a preferred certificate chain.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	acmeclient "github.com/acmeorder/acmeorder/acme/client"
	"github.com/acmeorder/acmeorder/cmd"
	acmeshell "github.com/acmeorder/acmeorder/shell"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	PEBBLE_DIRECTORY = "https://localhost:14000/dir"
	PEBBLE_CA_SUFFIX = "/src/github.com/letsencrypt/pebble/test/certs/pebble.minica.pem"
)

// config holds the defaults read from the environment. Command line flags
// override every field.
type config struct {
	Directory    string `env:"ACME_DIRECTORY" envDefault:"https://acme-staging-v02.api.letsencrypt.org/directory"`
	CACert       string `env:"ACME_CA_CERT"`
	Contact      string `env:"ACME_CONTACT"`
	Account      string `env:"ACME_ACCOUNT"`
	AutoRegister bool   `env:"ACME_AUTOREGISTER" envDefault:"true"`
	PostAsGet    bool   `env:"ACME_POST_AS_GET" envDefault:"true"`
	LogLevel     string `env:"ACME_LOG_LEVEL" envDefault:"info"`
	MetricsAddr  string `env:"ACME_METRICS_ADDR"`
}

func loadConfig(args []string) (config, string, bool, error) {
	var conf config
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return conf, "", false, err
	}
	if err := env.Parse(&conf); err != nil {
		return conf, "", false, err
	}

	fs := flag.NewFlagSet("acmeorder", flag.ExitOnError)
	fs.StringVar(&conf.Directory, "directory", conf.Directory, "Directory URL for ACME server")
	fs.StringVar(&conf.CACert, "ca", conf.CACert, "CA certificate(s) for verifying ACME server HTTPS")
	fs.BoolVar(&conf.AutoRegister, "autoregister", conf.AutoRegister, "Create an ACME account automatically at startup if required")
	fs.StringVar(&conf.Contact, "contact", conf.Contact, "Optional contact email address for auto-registered ACME account")
	fs.StringVar(&conf.Account, "account", conf.Account, "Optional JSON filepath to save/restore the ACME account and its orders")
	fs.BoolVar(&conf.PostAsGet, "postAsGet", conf.PostAsGet, "Use POST-as-GET requests instead of unauthenticated GET requests")
	fs.StringVar(&conf.LogLevel, "logLevel", conf.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&conf.MetricsAddr, "metrics", conf.MetricsAddr, "Optional address to serve Prometheus /metrics on")
	pebble := fs.Bool("pebble", false, "Use Pebble defaults")
	in := fs.String("in", "", "Optional file of shell commands to run instead of reading the terminal")

	if err := fs.Parse(args); err != nil {
		return conf, "", false, err
	}

	if *pebble {
		conf.Directory = PEBBLE_DIRECTORY
		conf.CACert = os.Getenv("GOPATH") + PEBBLE_CA_SUFFIX
	}
	return conf, *in, *pebble, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logrus.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Error("metrics server stopped")
	}
}

func main() {
	conf, in, pebble, err := loadConfig(os.Args[1:])
	cmd.FailOnError(err, "Unable to load configuration")

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := cmd.ParseLevel(conf.LogLevel)
	cmd.FailOnError(err, "Invalid log level")
	logrus.SetLevel(level)

	if pebble {
		logrus.WithField("directory", conf.Directory).Info("using Pebble defaults")
	}

	if in != "" {
		f, err := os.Open(in)
		cmd.FailOnError(err, "Unable to open command file")
		cmd.FailOnError(redirectStdin(int(f.Fd())), "Unable to read commands from file")
	}

	if conf.MetricsAddr != "" {
		go serveMetrics(conf.MetricsAddr)
	}

	opts := &acmeshell.ACMEShellOptions{
		Config: acmeclient.Config{
			DirectoryURL: conf.Directory,
			CACert:       conf.CACert,
			ContactEmail: conf.Contact,
			AccountPath:  conf.Account,
			AutoRegister: conf.AutoRegister,
			POSTAsGET:    conf.PostAsGet,
			Log:          logrus.StandardLogger(),
		},
		SaveOnExit: conf.Account != "",
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	shell, err := acmeshell.NewACMEShell(ctx, opts)
	cancel()
	cmd.FailOnError(err, "Unable to start ACME shell")

	go cmd.CatchSignals(shell.SaveAccount)
	shell.Run()
}
