// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/dropwatch"
	"github.com/jeranaias/warriorchat/internal/session"
)

// startDropWatch stages every file that settles in dir. notify, when set,
// receives the records created for each batch.
func startDropWatch(a *app, dir string, ctrl *session.Controller, notify func([]attach.Record)) (io.Closer, error) {
	dir = attach.ExpandHome(dir)
	w, err := dropwatch.New(dir, func(files []attach.LocalFile) {
		records := ctrl.AddLocalFiles(files...)
		a.logger.Debug("staged from drop folder", "files", len(records))
		if notify != nil {
			notify(records)
		}
	}, dropwatch.Options{Logger: a.logger})
	if err != nil {
		return nil, Usagef("--drop-dir: %v", err)
	}
	if err := w.Start(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
