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

package network

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/superkkt/netstate/document"

	"github.com/pkg/errors"
)

// FlowFingerprint returns the content hash identifying a flow installed on the
// switch dpid. Only priority, table ID, match, actions and dpid are hashed, so
// counters never change the fingerprint.
func FlowFingerprint(f Flow, dpid string) (string, error) {
	f.normalize()
	fields := map[string]interface{}{
		"priority": f.Priority,
		"table_id": f.TableID,
		"match":    f.Match,
		"actions":  f.Actions,
		"dpid":     dpid,
	}

	return fingerprint(fields)
}

// GroupFingerprint returns the content hash identifying a group installed on the switch dpid.
func GroupFingerprint(g Group, dpid string) (string, error) {
	g.normalize()
	fields := map[string]interface{}{
		"type":     g.Type,
		"group_id": g.GroupID,
		"buckets":  g.Buckets,
		"dpid":     dpid,
	}

	return fingerprint(fields)
}

func fingerprint(fields map[string]interface{}) (string, error) {
	data, err := document.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "fingerprint")
	}
	sum := md5.Sum(data)

	return hex.EncodeToString(sum[:]), nil
}
