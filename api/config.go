package api

import (
	"flag"
	"net"

	"github.com/grafana/globalconf"
	"github.com/grafana/hitcounter/api/middleware"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

var (
	Addr     string
	UseSSL   bool
	certFile string
	keyFile  string
	useGzip  bool

	metricsWindowStr string
	metricsWindow    uint32

	logHeaders bool
)

func ConfigSetup() {
	apiCfg := flag.NewFlagSet("http", flag.ExitOnError)
	apiCfg.StringVar(&Addr, "listen", ":5000", "http listener address.")
	apiCfg.BoolVar(&UseSSL, "ssl", false, "use HTTPS")
	apiCfg.StringVar(&certFile, "cert-file", "", "SSL certificate file")
	apiCfg.StringVar(&keyFile, "key-file", "", "SSL key file")
	apiCfg.BoolVar(&useGzip, "use-gzip", true, "use GZIP compression of all responses")
	apiCfg.StringVar(&metricsWindowStr, "metrics-window", "24h", "how far back /metrics looks when the request has no window parameter")
	apiCfg.BoolVar(&logHeaders, "log-headers", false, "log the request headers of failed requests")
	globalconf.Register("http", apiCfg, flag.ExitOnError)
}

func ConfigProcess() {
	var err error
	metricsWindow, err = dur.ParseNDuration(metricsWindowStr)
	if err != nil {
		log.Fatalf("API metrics-window %q is invalid: %s", metricsWindowStr, err)
	}

	//validate the addr
	_, err = net.ResolveTCPAddr("tcp", Addr)
	if err != nil {
		log.Fatal("API listen address is not a valid TCP address.")
	}
	if UseSSL && (certFile == "" || keyFile == "") {
		log.Fatal("API ssl requires both cert-file and key-file")
	}

	middleware.SetLogHeaders(logHeaders)
}
