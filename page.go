package main

// pageHTML is the annotator shell. The script only measures the surface
// and forwards raw events; every decision is made by /api/events.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { margin: 0; font-family: system-ui, sans-serif; background: #111827; color: #f9fafb; }
  header { display: flex; flex-wrap: wrap; gap: .5rem; align-items: center; padding: .75rem; }
  h1 { font-size: 1.1rem; margin: 0 1rem 0 0; }
  button, a.button { background: #374151; color: inherit; border: 0; border-radius: .375rem; padding: .4rem .8rem; cursor: pointer; text-decoration: none; font-size: .9rem; }
  button.active { background: #2563eb; }
  #adjust { display: none; gap: .5rem; align-items: center; }
  #adjust input { width: 5.5rem; }
  main { display: flex; justify-content: center; padding: 0 .75rem .75rem; }
  #surface { position: relative; display: inline-block; touch-action: none; user-select: none; }
  #surface.adding { cursor: crosshair; }
  #wall { display: block; max-width: 100%; max-height: 85vh; }
  #overlay { position: absolute; inset: 0; width: 100%; height: 100%; pointer-events: none; }
</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <button id="add">Add holds</button>
  <button id="reset">Reset</button>
  <a id="save" class="button" download="climbing-problem.png" href="{{.Export}}">Save image</a>
  <button id="copy">Copy link</button>
  <span id="adjust">
    <label>X <input id="x" type="number" step="0.01"></label>
    <label>Y <input id="y" type="number" step="0.01"></label>
  </span>
</header>
<main>
  <div id="surface">
    <img id="wall" src="/wall-image" width="{{.Size.Width}}" height="{{.Size.Height}}" draggable="false" alt="">
    <img id="overlay" alt="">
  </div>
</main>
<script>
(function () {
  const state = { param: {{.Param}}, selected: "", adding: false };
  const breakpoint = {{.Breakpoint}};
  const surface = document.getElementById("surface");
  const overlay = document.getElementById("overlay");
  const addBtn = document.getElementById("add");
  const adjust = document.getElementById("adjust");
  const xIn = document.getElementById("x");
  const yIn = document.getElementById("y");
  let chain = Promise.resolve();
  let moving = false;

  function measure() {
    const r = surface.getBoundingClientRect();
    return { left: r.left, top: r.top, width: r.width, height: r.height };
  }

  function viewport() {
    return { width: window.innerWidth, mobile: window.innerWidth <= breakpoint };
  }

  function touches(list) {
    return Array.from(list || []).map(function (t) { return { clientX: t.clientX, clientY: t.clientY }; });
  }

  function render(selectedHold) {
    overlay.src = "/overlay.svg?holds=" + state.param +
      "&selected=" + encodeURIComponent(state.selected) + "&vw=" + window.innerWidth;
    document.getElementById("save").href = "{{.Export}}?holds=" + state.param + "&vw=" + window.innerWidth;
    addBtn.classList.toggle("active", state.adding);
    addBtn.textContent = state.adding ? "Done adding" : "Add holds";
    surface.classList.toggle("adding", state.adding);
    adjust.style.display = selectedHold ? "inline-flex" : "none";
    if (selectedHold && document.activeElement !== xIn && document.activeElement !== yIn) {
      xIn.value = selectedHold.x;
      yIn.value = selectedHold.y;
    }
  }

  function post(event, rect) {
    return fetch("/api/events", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({
        holds: state.param, selected: state.selected, adding: state.adding,
        event: event, rect: rect, viewport: viewport()
      })
    }).then(function (res) {
      return res.ok ? res.json() : null;
    }).then(function (out) {
      if (!out) return;
      state.param = out.param;
      state.selected = out.selected;
      state.adding = out.adding;
      if (out.query) history.replaceState(null, "", out.query);
      render(out.selectedHold);
    }).catch(function (err) { console.error(err); });
  }

  // Events are applied in order; the rect is measured when the event fires.
  function send(event) {
    const rect = measure();
    chain = chain.then(function () { return post(event, rect); });
    return chain;
  }

  function pointer(e) {
    return { type: e.type, clientX: e.clientX, clientY: e.clientY };
  }

  function touch(e) {
    return { type: e.type, touches: touches(e.touches), changedTouches: touches(e.changedTouches) };
  }

  function move(event) {
    if (!state.selected || moving) return;
    moving = true;
    send(event).then(function () { moving = false; });
  }

  surface.addEventListener("mousedown", function (e) { send(pointer(e)); });
  surface.addEventListener("mousemove", function (e) { move(pointer(e)); });
  surface.addEventListener("mouseup", function (e) { send(pointer(e)); });
  surface.addEventListener("mouseleave", function (e) { send(pointer(e)); });
  surface.addEventListener("click", function (e) { send(pointer(e)); });
  surface.addEventListener("touchstart", function (e) { send(touch(e)); }, { passive: true });
  surface.addEventListener("touchmove", function (e) { move(touch(e)); }, { passive: true });
  surface.addEventListener("touchend", function (e) { send(touch(e)); }, { passive: true });
  document.addEventListener("keydown", function (e) {
    if (e.key === "Escape") send({ type: "keydown", key: e.key });
  });

  addBtn.addEventListener("click", function () { send({ type: "toggle-add" }); });
  document.getElementById("reset").addEventListener("click", function () {
    if (confirm("Remove all holds?")) send({ type: "reset" });
  });

  function adjustTo() {
    const x = parseFloat(xIn.value), y = parseFloat(yIn.value);
    const ev = { type: "adjust" };
    if (!isNaN(x)) ev.x = x;
    if (!isNaN(y)) ev.y = y;
    send(ev);
  }
  xIn.addEventListener("change", adjustTo);
  yIn.addEventListener("change", adjustTo);

  document.getElementById("copy").addEventListener("click", function () {
    const link = window.location.origin + window.location.pathname + "?holds=" + state.param;
    function fallback() {
      const ta = document.createElement("textarea");
      ta.value = link;
      document.body.appendChild(ta);
      ta.select();
      try {
        document.execCommand("copy");
        alert("Link copied to clipboard!");
      } catch (err) {
        alert("Could not copy automatically. Copy this link:\n" + link);
      }
      document.body.removeChild(ta);
    }
    if (navigator.clipboard && window.isSecureContext) {
      navigator.clipboard.writeText(link).then(function () {
        alert("Link copied to clipboard!");
      }, fallback);
    } else {
      fallback();
    }
  });

  window.addEventListener("resize", function () { render(null); });
  render(null);
})();
</script>
</body>
</html>
`
