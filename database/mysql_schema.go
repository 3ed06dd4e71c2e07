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

package database

import (
	"fmt"
)

func (r *MySQL) createTables() error {
	if err := r.createSwitchTable(); err != nil {
		return fmt.Errorf("creating switch DB table: %v", err)
	}

	return nil
}

func (r *MySQL) createSwitchTable() error {
	qry := "CREATE TABLE IF NOT EXISTS `switch` ("
	qry += " `id` char(36) NOT NULL,"
	qry += " `name` varchar(32) NOT NULL,"
	qry += " `document` json NOT NULL,"
	qry += " `timestamp` datetime NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,"
	qry += " PRIMARY KEY (`id`),"
	qry += " UNIQUE KEY `name` (`name`)"
	qry += ") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"

	_, err := r.db.Exec(qry)
	return err
}
