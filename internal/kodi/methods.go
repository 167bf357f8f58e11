package kodi

// Method is an internal bus message. Send is the name used with NotifyAll;
// the host rebroadcasts third-party messages with an "Other." prefix, which
// is the form the service's dispatch table matches on.
type Method struct {
	name string
}

func (m Method) Send() string { return m.name }
func (m Method) Recv() string { return "Other." + m.name }

// Internal bus methods. The name carries the addon prefix so receivers can
// tell our messages from other senders'.
var (
	MethodSyncAll   = Method{"NFOSync.SyncAll"}
	MethodSyncOne   = Method{"NFOSync.SyncOne"}
	MethodImportAll = Method{"NFOSync.ImportAll"}
	MethodExportOne = Method{"NFOSync.ExportOne"}
	MethodExportAll = Method{"NFOSync.ExportAll"}
	MethodWaitDone  = Method{"NFOSync.WaitDone"}
)

// Host notification methods the engine reacts to.
const (
	OnUpdate        = "VideoLibrary.OnUpdate"
	OnRemove        = "VideoLibrary.OnRemove"
	OnCleanFinished = "VideoLibrary.OnCleanFinished"
	OnScanFinished  = "VideoLibrary.OnScanFinished"
	OnPlay          = "Player.OnPlay"
	OnStop          = "Player.OnStop"
)
