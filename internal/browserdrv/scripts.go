package browserdrv

// In-page helper scripts the chromedp backend evaluates. Every script is
// a self-contained IIFE so it can be formatted with one or two
// already-JSON-escaped string arguments and handed to runtime.Evaluate.

const firstByXPathScript = `(function(xp){
  var r = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
  return r.singleNodeValue;
})`

const visibilityByXPathScript = `(function(xp){
  var node = ` + firstByXPathScript + `(xp);
  return !!node && node.offsetParent !== null;
})(%s)`

const boundingBoxBySelectorScript = `(function(sel){
  var el = document.querySelector(sel);
  if (!el) return null;
  var r = el.getBoundingClientRect();
  return [r.x, r.y, r.width, r.height];
})(%s)`

const boundingBoxByXPathScript = `(function(xp){
  var node = ` + firstByXPathScript + `(xp);
  if (!node) return null;
  var r = node.getBoundingClientRect();
  return [r.x, r.y, r.width, r.height];
})(%s)`

const scrollIntoViewBySelectorScript = `(function(sel){
  var el = document.querySelector(sel);
  if (el) { try { el.scrollIntoView({block:'center', inline:'center'}); } catch(e) {} }
})(%s)`

const scrollIntoViewByXPathScript = `(function(xp){
  var node = ` + firstByXPathScript + `(xp);
  if (node) { try { node.scrollIntoView({block:'center', inline:'center'}); } catch(e) {} }
})(%s)`

const elementKindBody = `
  if (!el) return 'unknown';
  var tag = el.tagName;
  if (tag === 'SELECT') return 'select';
  if (tag === 'INPUT') {
    var type = (el.getAttribute('type') || 'text').toLowerCase();
    if (type === 'checkbox') return 'checkbox';
    if (type === 'radio') return 'radio';
    return 'text';
  }
  if (tag === 'TEXTAREA') return 'text';
  return 'unknown';
`

const elementKindScript = `(function(sel){
  var el = document.querySelector(sel);` + elementKindBody + `
})(%s)`

const elementKindByXPathScript = `(function(xp){
  var el = ` + firstByXPathScript + `(xp);` + elementKindBody + `
})(%s)`

const fillBody = `
  if (!el) return;
  el.focus();
  el.value = value;
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
`

const fillScript = `(function(sel, value){
  var el = document.querySelector(sel);` + fillBody + `
})(%s, %s)`

const fillByXPathScript = `(function(xp, value){
  var el = ` + firstByXPathScript + `(xp);` + fillBody + `
})(%s, %s)`

const checkBody = `
  if (!el) return false;
  el.checked = true;
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return el.checked === true;
`

const checkScript = `(function(sel){
  var el = document.querySelector(sel);` + checkBody + `
})(%s)`

const checkByXPathScript = `(function(xp){
  var el = ` + firstByXPathScript + `(xp);` + checkBody + `
})(%s)`

const clickLabelForScript = `(function(forID){
  var label = document.querySelector('label[for="' + forID + '"]');
  if (!label) return false;
  label.click();
  return true;
})(%s)`

const selectByValueBody = `
  if (!el) return;
  el.value = value;
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
`

const selectByValueScript = `(function(sel, value){
  var el = document.querySelector(sel);` + selectByValueBody + `
})(%s, %s)`

const selectByValueByXPathScript = `(function(xp, value){
  var el = ` + firstByXPathScript + `(xp);` + selectByValueBody + `
})(%s, %s)`

const scrollContainerScript = `(function(xp, x, y){
  var node = ` + firstByXPathScript + `(xp);
  if (node) { node.scrollTo({left: x, top: y, behavior: 'smooth'}); }
})(%s, %f, %f)`

const injectStyleScript = `(function(id, css){
  var existing = document.getElementById(id);
  if (existing) return;
  var style = document.createElement('style');
  style.id = id;
  style.textContent = css;
  document.head.appendChild(style);
})(%s, %s)`

const removeStyleScript = `(function(id){
  var existing = document.getElementById(id);
  if (existing && existing.parentNode) existing.parentNode.removeChild(existing);
})(%s)`

const readLocalStorageScript = `(function(key){ return window.localStorage.getItem(key); })(%s)`
const writeLocalStorageScript = `(function(key, value){ window.localStorage.setItem(key, value); })(%s, %s)`
const writeSessionStorageScript = `(function(key, value){ window.sessionStorage.setItem(key, value); })(%s, %s)`
