package daemon

import (
	"time"

	"github.com/wayswitch/wayswitch/internal/api"
	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/ipc"
)

func (d *Daemon) handleRequest(req ipc.Request) {
	resp := d.dispatchCommand(req.Command)
	select {
	case req.Reply <- resp:
	default:
		// Connection goroutine gave up on a slow daemon.
	}
}

func (d *Daemon) dispatchCommand(cmd ipc.Command) *ipc.Response {
	switch cmd.Command {
	case ipc.CommandPing:
		return ipc.NewOKResponse()

	case ipc.CommandShow:
		d.requiredMods = d.parseModifiers(cmd.Modifiers,
			d.parseModifiers(d.cfg.Modifiers, 0))
		if err := d.showOverlay(cmd.Direction); err != nil {
			d.log.Error().Err(err).Msg("Show failed")
			return ipc.NewErrorResponse(err.Error())
		}
		return ipc.NewOKResponse()

	case ipc.CommandHide:
		d.hideOverlay()
		return ipc.NewOKResponse()

	default:
		return ipc.NewErrorResponse("unknown command " + string(cmd.Command))
	}
}

// onConfigChange runs on the watcher goroutine; the update itself is
// deferred onto the loop.
func (d *Daemon) onConfigChange(cfg *config.Config) {
	select {
	case d.cmds <- func() error {
		d.applyConfig(cfg)
		return nil
	}:
	default:
		d.log.Warn().Msg("Command queue full, dropping config reload")
	}
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	d.cfg = cfg
	d.gui.SetStyle(cfg.Window, cfg.Item)
	d.requiredMods = d.parseModifiers(cfg.Modifiers, d.requiredMods)
	d.requestRepaint()
	d.log.Info().Msg("Configuration reloaded")
}

// Snapshot reads the daemon state from any goroutine by bouncing the
// read through the command queue.
func (d *Daemon) Snapshot() api.Snapshot {
	reply := make(chan api.Snapshot, 1)
	select {
	case d.cmds <- func() error {
		reply <- d.snapshot()
		return nil
	}:
	case <-time.After(2 * time.Second):
		return api.Snapshot{Visibility: "unknown"}
	}

	select {
	case snap := <-reply:
		return snap
	case <-time.After(2 * time.Second):
		return api.Snapshot{Visibility: "unknown"}
	}
}

func (d *Daemon) snapshot() api.Snapshot {
	snap := api.Snapshot{
		Visibility: d.vis.String(),
		Selected:   d.gui.SelectedIndex(),
	}
	for _, it := range d.gui.Items() {
		info := api.WindowInfo{
			ID:         uint32(it.ID),
			Title:      it.Title,
			AppID:      it.AppID,
			HasPreview: it.Preview != nil,
			HasIcon:    it.Icon != nil,
		}
		for output := range d.outputs[it.ID] {
			info.Outputs = append(info.Outputs, output)
		}
		snap.Windows = append(snap.Windows, info)
	}
	return snap
}

func (d *Daemon) notifyDebug() {
	if d.debug == nil {
		return
	}
	d.debug.Broadcast(d.snapshot())
}
