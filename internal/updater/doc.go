// Package updater sequences a two-board firmware update against one charger.
//
// The update is ten linear steps: fetch device info, upload and reboot the
// main board, then upload and reboot the rear board, with fixed waits in
// between and a best-effort info fetch at the end. The first failing step
// aborts the run; there is no retry and no rollback.
//
// Requests are issued one at a time and every wait runs to completion.
package updater
