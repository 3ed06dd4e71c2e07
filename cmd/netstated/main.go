/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/superkkt/netstate/api"
	"github.com/superkkt/netstate/broker"
	"github.com/superkkt/netstate/database"
	"github.com/superkkt/netstate/log"
	"github.com/superkkt/netstate/network"
	"github.com/superkkt/netstate/ryu"
	"github.com/superkkt/netstate/state"
	"github.com/superkkt/netstate/updater"

	"github.com/fsnotify/fsnotify"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	programName     = "netstated"
	programVersion  = "0.1.0"
	defaultLogLevel = logging.INFO
	shutdownTimeout = 5 * time.Second
)

var (
	logger            = logging.MustGetLogger("main")
	loggerLeveled     logging.LeveledBackend
	showVersion       = flag.Bool("version", false, "Show program version and exit")
	defaultConfigFile = flag.String("config", fmt.Sprintf("/usr/local/etc/%v.yaml", programName), "absolute path of the configuration file")
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()
	if *showVersion {
		fmt.Printf("Version: %v\n", programVersion)
		os.Exit(0)
	}

	initConfig()
	if err := initLog(getLogLevel(viper.GetString("log.level"))); err != nil {
		logger.Fatalf("failed to init log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store, closeStore, err := newStore(ctx)
	if err != nil {
		logger.Fatalf("failed to init the %v database: %v", viper.GetString("database.type"), err)
	}
	defer closeStore()

	netState := state.New()
	client := ryu.New(viper.GetString("controller.url"), viper.GetDuration("controller.timeout"))
	u := updater.New(network.NewAssembler(client, viper.GetInt("controller.concurrency")), store, netState)
	if viper.GetBool("database.reset") {
		if err := u.Reset(ctx); err != nil {
			logger.Fatalf("failed to reset the database: %v", err)
		}
	}
	if err := u.Prime(ctx); err != nil {
		logger.Fatalf("failed to load the persisted network state: %v", err)
	}

	b := broker.New(netState, viper.GetInt("broker.capacity"))
	initBroker(ctx, b)
	initAPIServer(ctx, netState, b)

	scheduler := updater.NewScheduler(u, viper.GetDuration("poll.interval"))
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatalf("failed to start the scheduler: %v", err)
	}
	logger.Infof("%v %v started: store=%v", programName, programVersion, store)

	waitSignal(netState, scheduler, b)
	logger.Warning("Shutting down...")
	// Stop blocks until the in-flight cycle finishes attempting its mutations.
	scheduler.Stop()
	cancel()
	// Timeout for cancelation
	time.Sleep(time.Second)
}

func initConfig() {
	setDefaults()
	viper.SetConfigFile(*defaultConfigFile)
	// Read the config file.
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatalf("failed to read the config file: %v", err)
	}
	// Watching and re-reading config file whenever it changes.
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Ignore the WRITE operation to avoid reading empty config.
		if e.Op != fsnotify.Write {
			return
		}

		if loggerLeveled != nil {
			// Set log level for all modules
			loggerLeveled.SetLevel(getLogLevel(viper.GetString("log.level")), "")
		}
	})
	viper.WatchConfig()
	if err := validateConfig(); err != nil {
		logger.Fatalf("failed to validate the configuration: %v", err)
	}
}

func initLog(level logging.Level) error {
	var backend logging.Backend
	if viper.GetBool("log.syslog") {
		var err error
		backend, err = log.NewSyslog(programName)
		if err != nil {
			return err
		}
	} else {
		backend = log.NewWriter(os.Stderr)
	}

	loggerLeveled = log.NewLeveled(backend, level)
	logging.SetBackend(loggerLeveled)

	return nil
}

func getLogLevel(level string) logging.Level {
	ret, ok := log.ParseLevel(level, defaultLogLevel)
	if !ok {
		logger.Infof("invalid log level=%v, defaulting to %v..", level, defaultLogLevel)
	}

	return ret
}

type store interface {
	updater.Store
	String() string
}

func newStore(ctx context.Context) (store, func(), error) {
	switch t := viper.GetString("database.type"); t {
	case "mongo":
		db, err := database.NewMongo(ctx)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := db.Close(c); err != nil {
				logger.Errorf("failed to close the mongo client: %v", err)
			}
		}, nil
	case "mysql":
		db, err := database.NewMySQL()
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Errorf("failed to close the mysql database: %v", err)
			}
		}, nil
	case "memory":
		return database.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown database type: %v", t)
	}
}

func initBroker(ctx context.Context, b *broker.Broker) {
	go func() {
		err := b.Run(ctx, viper.GetDuration("broker.interval"), nil)
		if err != nil && errors.Cause(err) != context.Canceled {
			logger.Errorf("state broker terminated: %v", err)
		}
		logger.Debugf("state broker terminated")
	}()
}

func initAPIServer(ctx context.Context, s *state.State, b *broker.Broker) {
	port := viper.GetInt("rest.port")
	if port == 0 {
		logger.Info("REST server is disabled")
		return
	}

	go func() {
		srv := &api.Server{State: s, Broker: b}
		srv.Port = uint16(port)
		srv.TLS.Cert = viper.GetString("rest.tls.cert")
		srv.TLS.Key = viper.GetString("rest.tls.key")
		if err := srv.Serve(ctx); err != nil {
			logger.Fatalf("failed to run the API server: %v", err)
		}
	}()
}

// waitSignal blocks until SIGTERM or SIGINT. SIGHUP dumps the current status.
func waitSignal(s *state.State, scheduler *updater.Scheduler, b *broker.Broker) {
	c := make(chan os.Signal, 5)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(c)

	for sig := range c {
		if sig != syscall.SIGHUP {
			return
		}

		fmt.Printf("* Scheduler: %v\n", scheduler.State())
		fmt.Printf("* Agent runs: %v\n", b.Runs())
		if snapshot, err := s.NetworkState(); err == nil {
			fmt.Printf("* Network state: %v\n", snapshot)
		} else {
			fmt.Printf("* Network state: %v\n", err)
		}
	}
}
