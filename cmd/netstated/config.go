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
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func setDefaults() {
	viper.SetDefault("log.level", "INFO")
	viper.SetDefault("log.syslog", true)
	viper.SetDefault("controller.url", "http://127.0.0.1:8080")
	viper.SetDefault("controller.timeout", 10*time.Second)
	viper.SetDefault("controller.concurrency", 8)
	viper.SetDefault("poll.interval", 60*time.Second)
	viper.SetDefault("database.type", "mongo")
	viper.SetDefault("database.reset", false)
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "topology")
	viper.SetDefault("mongo.collection", "switches")
	viper.SetDefault("rest.port", 8000)
	viper.SetDefault("broker.capacity", 1024)
	viper.SetDefault("broker.interval", 10*time.Second)
}

func validateConfig() error {
	u, err := url.Parse(viper.GetString("controller.url"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || len(u.Host) == 0 {
		return errors.New("invalid controller.url")
	}
	if viper.GetDuration("controller.timeout") <= 0 {
		return errors.New("invalid controller.timeout")
	}
	if viper.GetInt("controller.concurrency") <= 0 {
		return errors.New("invalid controller.concurrency")
	}
	if viper.GetDuration("poll.interval") <= 0 {
		return errors.New("invalid poll.interval")
	}
	if port := viper.GetInt("rest.port"); port < 0 || port > 0xFFFF {
		return errors.New("invalid rest.port")
	}
	if (len(viper.GetString("rest.tls.cert")) == 0) != (len(viper.GetString("rest.tls.key")) == 0) {
		return errors.New("rest.tls.cert and rest.tls.key should be specified together")
	}
	if viper.GetInt("broker.capacity") <= 0 {
		return errors.New("invalid broker.capacity")
	}
	if viper.GetDuration("broker.interval") <= 0 {
		return errors.New("invalid broker.interval")
	}

	switch t := viper.GetString("database.type"); t {
	case "mongo":
		for _, v := range []string{"mongo.uri", "mongo.database", "mongo.collection"} {
			if len(viper.GetString(v)) == 0 {
				return errors.Errorf("invalid %v", v)
			}
		}
	case "mysql":
		for _, v := range []string{"mysql.addr", "mysql.username", "mysql.name"} {
			if len(viper.GetString(v)) == 0 {
				return errors.Errorf("invalid %v", v)
			}
		}
	case "memory":
	default:
		return errors.Errorf("invalid database.type: %v", t)
	}

	return nil
}
