/*Package ardrone provides a client-side control stack for the Parrot AR.Drone® UDP protocol.

Disclaimer

AR.Drone is a registered trademark of Parrot.  The author(s) of this package is/are in no way affiliated with Parrot.

Use this package at your own risk.  The author(s) is/are in no way responsible for any damage caused either to or by the
drone when using this software.

Concepts

Sessions

A Drone is one session with one drone.  Connect() opens the command socket (any local port), the telemetry socket
(the well-known navdata port), the video socket and, optionally, a TCP control channel.  It then sends the bootstrap
handshake and the session enters BOOTSTRAP.  The first well-formed telemetry datagram moves it to READY.
Disconnect() is orderly and idempotent; any unrecoverable socket failure tears everything down and leaves the
session in ERROR, from which Connect() may be called again.

Commands

Every command call (TakeOff(), Hover(), Set() etc.) just queues a Command and returns immediately.  A dedicated
sender goroutine transmits queued commands in priority order: emergency, then control, then movement, first-in
first-out within each class.  Sending is fire-and-forget; a failed send is reported through the error handler and the
next command is tried.

Telemetry

A dedicated receiver goroutine decodes each datagram and hands it to the channel returned by NavData(), but only
while the session is READY.  Whether telemetry decoded in other states is dropped or buffered is set by
Config.NavDataPolicy.  If Config.Watchdog.Timeout is set, a Watchdog moves a READY session whose telemetry has
gone quiet into WATCHDOG, and back again when it resumes.

*/
package ardrone
