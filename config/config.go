package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr             string
	DBUrl            string
	TokenSecret      string
	TokenTTL         time.Duration
	Debug            bool
	StrictValidation bool
	CompatColumns    bool
	WeekStart        time.Weekday
	UploadDir        string
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBUrl, "db-url", "formbox.sqlite", "path to SQLite3 DB file (default formbox.sqlite)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds (default 120)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.BoolVar(&cfg.StrictValidation, "strict-validation", false, "enforce per-type answer validation rules at submission time")
	flag.BoolVar(&cfg.CompatColumns, "compat-columns", false, "use legacy non-unique export column names")
	var weekStart string
	flag.StringVar(&weekStart, "week-start", "monday", "first day of the week for statistics (default monday)")
	flag.StringVar(&cfg.UploadDir, "upload-dir", "uploads", "directory for uploaded media files (default uploads)")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	cfg.WeekStart, err = parseWeekday(weekStart)
	if err != nil {
		return
	}

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(name, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid -week-start: %q", name)
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
