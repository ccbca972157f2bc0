package devserver

import "net/http"

// clientScript connects to the reload stream. "css" events re-fetch the
// matching stylesheets in place; "reload" events reload the page.
const clientScript = `(() => {
  if (window.__kilnReload) return;
  window.__kilnReload = true;

  function swapStyles(paths) {
    const links = document.querySelectorAll('link[rel="stylesheet"][href]');
    let swapped = 0;
    links.forEach((link) => {
      const url = new URL(link.href, location.href);
      if (paths.length && !paths.includes(url.pathname)) return;
      url.searchParams.set('kiln', Date.now().toString());
      link.href = url.toString();
      swapped++;
    });
    if (!swapped) location.reload();
  }

  function connect() {
    const source = new EventSource('` + ReloadPath + `');
    source.addEventListener('css', (e) => {
      try { swapStyles(JSON.parse(e.data).paths || []); } catch (_) { location.reload(); }
    });
    source.addEventListener('reload', () => location.reload());
    source.onerror = () => {
      source.close();
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
`

func serveClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(clientScript))
}
