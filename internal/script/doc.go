// Package script manages the Lua scripts that listen to host events.
//
// Each script file runs in its own engine and owns one Session. The session
// is exposed to the script as the global plugin:
//
//	function onJoin(ev)
//	    plugin:getLogger():info(ev.player .. " joined")
//	end
//
//	plugin:registerListener("onJoin", "normal", false, "PlayerJoinEvent")
//	plugin:registerListener({event = "PlayerChatEvent", handler = "onChat", priority = "high"})
//	plugin:setUnloadHook(function() print("bye") end)
//
// registerListener accepts four forms:
//
//   - (function, priority, ignoreCancelled, event)
//   - (object, method, priority, ignoreCancelled, event)
//   - ({event = ..., handler = ..., priority = ..., ignoreCancelled = ...})
//   - the table form with handler set to a function, which registers the
//     table itself as the object and "handler" as its method, so the
//     function is called as handler(table, event)
//
// Registering a callback that is already registered for the same event
// returns false. unregisterListener takes (function, event) or
// (object, method, event).
//
// The Loader walks a directory, creates one engine and one Session per
// script file and evaluates the file. A script that fails to evaluate is
// logged and skipped. Unloading a script runs its unload hook, unbinds all
// of its listeners and closes its engine.
package script
