// Package ui renders genius-monitor output in the terminal.
//
// Two kinds of output are provided:
//
//   - Printer: styled one-shot output (headers, packet detail boxes, error
//     boxes, discovery results) for commands that print and exit.
//   - MonitorModel: an interactive Bubble Tea program showing the gateway
//     connection state, the alarm state and a live list of received radio
//     frames, with identical frames folded into one row.
//
// Attach connects a running socket to a MonitorModel program:
//
//	p := tea.NewProgram(ui.NewMonitorModel(url), tea.WithAltScreen())
//	go func() {
//	    ui.Attach(p, sock, table)
//	    _ = sock.Start(ctx)
//	}()
//	_, err := p.Run()
//
// # Logging Integration
//
// zap logging writes to stderr and is silent unless GENIUS_LOG_LEVEL is set,
// so it does not interfere with the full-screen view.
package ui
