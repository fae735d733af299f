/*
Package logic builds the per-form logic sinks.

A form document may carry a JavaScript script. The script runs once in its own
goja VM when the form is created and may define any of these global hooks:

	onInit()  onOpen()  onClose(isShutdown)  onCover()  onReveal()
	onPause() onResume() onRefocus() onDepthChanged(groupCount, depth)
	onUpdate(elapsedMs)

A read-only `form` object (serialId, assetName, group, depth, isOpen,
pauseCoveredUIForm) and a `console` backed by the host logger are available.
Every hook call is interrupted after Config.Timeout; failures are logged and
never reach the form stack.

Documents without a script get a no-op sink.
*/
package logic
