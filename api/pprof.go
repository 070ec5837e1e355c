package api

import (
	"net/http"
	_ "net/http/pprof"
	"runtime"
	rpprof "runtime/pprof"
	"strconv"
	"strings"
	"time"

	"gopkg.in/macaron.v1"
)

const pprofPrefix = "/debug/pprof/"

// pprofHandler hands the remaining profiles to the handlers net/http/pprof registers
func pprofHandler(ctx *macaron.Context) {
	http.DefaultServeMux.ServeHTTP(ctx.Resp, ctx.Req.Request)
}

// isProfilePath returns whether p is the pprof index, one of its fixed endpoints or a known profile
func isProfilePath(p string) bool {
	name := strings.TrimPrefix(p, pprofPrefix)
	switch name {
	case "", "cmdline", "profile", "symbol", "trace":
		return true
	}
	return rpprof.Lookup(name) != nil
}

// profileParams reads the parameters shared by the sampling profile handlers.
// seconds defaults to 30, rate to def.
func profileParams(r *http.Request, def int) (debug int, sleep time.Duration, rate int) {
	debug, _ = strconv.Atoi(r.FormValue("debug"))
	sec, _ := strconv.ParseInt(r.FormValue("seconds"), 10, 64)
	if sec <= 0 {
		sec = 30
	}
	rate, _ = strconv.Atoi(r.FormValue("rate"))
	if rate <= 0 {
		rate = def
	}
	return debug, time.Duration(sec) * time.Second, rate
}

// blockHandler enables block profiling for the requested duration and writes out the profile.
// Unlike the standard library handler it allows to specify a rate: the profiler aims to
// sample an average of one blocking event per rate nanoseconds spent blocked.
// Defaults to 10k (10 microseconds)
func blockHandler(w http.ResponseWriter, r *http.Request) {
	debug, sleep, rate := profileParams(r, 10000)
	w.Header().Set("Content-Type", "application/octet-stream")
	runtime.SetBlockProfileRate(rate)
	time.Sleep(sleep)
	runtime.SetBlockProfileRate(0)
	rpprof.Lookup("block").WriteTo(w, debug)
}

// mutexHandler is like blockHandler, for mutex contention.
// On average 1/rate events are reported. The default is 1000
func mutexHandler(w http.ResponseWriter, r *http.Request) {
	debug, sleep, rate := profileParams(r, 1000)
	w.Header().Set("Content-Type", "application/octet-stream")
	runtime.SetMutexProfileFraction(rate)
	time.Sleep(sleep)
	runtime.SetMutexProfileFraction(0)
	rpprof.Lookup("mutex").WriteTo(w, debug)
}
