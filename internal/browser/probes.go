// internal/browser/probes.go
package browser

import "github.com/xkilldash9x/pagepilot/api/schemas"

// In-page probe snippets. Every probe is a self-contained function
// expression evaluated in the page; arguments travel through Evaluate's arg
// parameter so selector strings never need escaping into the script text.
// XPath resolution always uses an ordered snapshot so indices are stable for
// the duration of one probe.

const probeCountCSS = `
(selector) => document.querySelectorAll(selector).length
`

const probeCountXPath = `
(xpath) => document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength
`

const probeHTMLCSS = `
(selector) => {
    const elements = document.querySelectorAll(selector);
    return Array.from(elements).map(el => el.outerHTML);
}
`

const probeHTMLXPath = `
(xpath) => {
    const result = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const elements = [];
    for (let i = 0; i < result.snapshotLength; i++) {
        const node = result.snapshotItem(i);
        if (node.outerHTML) {
            elements.push(node.outerHTML);
        } else if (node.textContent) {
            elements.push(node.textContent);
        }
    }
    return elements;
}
`

const probeTextCSS = `
(selector) => {
    const elements = document.querySelectorAll(selector);
    return Array.from(elements).map(el => el.textContent.trim());
}
`

const probeTextXPath = `
(xpath) => {
    const result = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const elements = [];
    for (let i = 0; i < result.snapshotLength; i++) {
        const node = result.snapshotItem(i);
        elements.push((node.textContent || '').trim());
    }
    return elements;
}
`

// Click and fill receive the target indices precomputed on the Go side.
const probeClickCSS = `
(args) => {
    const [selector, indices] = args;
    const elements = Array.from(document.querySelectorAll(selector));
    const results = [];
    for (const i of indices) {
        const el = elements[i];
        if (!el) {
            results.push('error: element ' + i + ' disappeared');
            continue;
        }
        try {
            el.click();
            results.push('clicked');
        } catch (e) {
            results.push('error: ' + e.message);
        }
    }
    return results;
}
`

const probeClickXPath = `
(args) => {
    const [xpath, indices] = args;
    const result = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const elements = [];
    for (let i = 0; i < result.snapshotLength; i++) {
        elements.push(result.snapshotItem(i));
    }
    const results = [];
    for (const i of indices) {
        const node = elements[i];
        if (!node) {
            results.push('error: element ' + i + ' disappeared');
            continue;
        }
        try {
            node.click();
            results.push('clicked');
        } catch (e) {
            results.push('error: ' + e.message);
        }
    }
    return results;
}
`

const probeFillCSS = `
(args) => {
    const [selector, value, indices] = args;
    const elements = Array.from(document.querySelectorAll(selector));
    const results = [];
    for (const i of indices) {
        const el = elements[i];
        if (!el) {
            results.push('error: element ' + i + ' disappeared');
            continue;
        }
        try {
            el.value = '';
            el.focus();
            el.value = value;
            el.dispatchEvent(new Event('input', { bubbles: true }));
            el.dispatchEvent(new Event('change', { bubbles: true }));
            results.push('filled');
        } catch (e) {
            results.push('error: ' + e.message);
        }
    }
    return results;
}
`

const probeFillXPath = `
(args) => {
    const [xpath, value, indices] = args;
    const result = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const elements = [];
    for (let i = 0; i < result.snapshotLength; i++) {
        elements.push(result.snapshotItem(i));
    }
    const results = [];
    for (const i of indices) {
        const node = elements[i];
        if (!node) {
            results.push('error: element ' + i + ' disappeared');
            continue;
        }
        try {
            node.value = '';
            node.focus();
            node.value = value;
            node.dispatchEvent(new Event('input', { bubbles: true }));
            node.dispatchEvent(new Event('change', { bubbles: true }));
            results.push('filled');
        } catch (e) {
            results.push('error: ' + e.message);
        }
    }
    return results;
}
`

const probeAttributeCSS = `
(args) => {
    const [selector, attrName] = args;
    const elements = document.querySelectorAll(selector);
    return Array.from(elements).map(el => el.getAttribute(attrName) || '');
}
`

const probeAttributeXPath = `
(args) => {
    const [xpath, attrName] = args;
    const result = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const elements = [];
    for (let i = 0; i < result.snapshotLength; i++) {
        const node = result.snapshotItem(i);
        if (node.getAttribute) {
            elements.push(node.getAttribute(attrName) || '');
        } else {
            elements.push(node.textContent || node.nodeValue || '');
        }
    }
    return elements;
}
`

// probeAttributeDirectXPath evaluates a query that itself names attribute
// nodes, e.g. //a/@href, without resolving elements first.
const probeAttributeDirectXPath = `
(xpath) => {
    const result = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const values = [];
    for (let i = 0; i < result.snapshotLength; i++) {
        const node = result.snapshotItem(i);
        values.push(node.nodeValue || node.textContent || '');
    }
    return values;
}
`

// Removal walks the given indices in the order supplied; the dispatcher
// passes them highest first so earlier removals cannot shift later targets.
const probeRemoveCSS = `
(args) => {
    const [selector, indices] = args;
    const elements = Array.from(document.querySelectorAll(selector));
    const results = [];
    for (const i of indices) {
        const el = elements[i];
        if (!el) {
            results.push('error: element ' + i + ' disappeared');
            continue;
        }
        try {
            el.remove();
            results.push('removed');
        } catch (e) {
            results.push('error: ' + e.message);
        }
    }
    return results;
}
`

const probeRemoveXPath = `
(args) => {
    const [xpath, indices] = args;
    const result = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const elements = [];
    for (let i = 0; i < result.snapshotLength; i++) {
        elements.push(result.snapshotItem(i));
    }
    const results = [];
    for (const i of indices) {
        const node = elements[i];
        if (!node) {
            results.push('error: element ' + i + ' disappeared');
            continue;
        }
        try {
            if (node.remove) {
                node.remove();
            } else if (node.parentNode) {
                node.parentNode.removeChild(node);
            }
            results.push('removed');
        } catch (e) {
            results.push('error: ' + e.message);
        }
    }
    return results;
}
`

// probeAtBottom reports whether the viewport has reached the bottom of the
// document.
const probeAtBottom = `
() => (window.scrollY + window.innerHeight) >= document.body.scrollHeight
`

// probeClickNext tries the known next-page controls in order and reports
// which one it clicked, or an empty string when none exist.
const probeClickNext = `
() => {
    const byId = document.querySelector('#pnnext');
    if (byId) {
        byId.click();
        return 'id';
    }
    const byLabel = document.querySelector('a[aria-label="Next page"], a[aria-label="Next"]');
    if (byLabel) {
        byLabel.click();
        return 'aria-label';
    }
    const anchors = document.querySelectorAll('a');
    for (const a of anchors) {
        if ((a.textContent || '').trim() === 'Next') {
            a.click();
            return 'text';
        }
    }
    return '';
}
`

func countProbe(kind schemas.SelectorKind) string {
	if kind == schemas.SelectorCSS {
		return probeCountCSS
	}
	return probeCountXPath
}

func htmlProbe(kind schemas.SelectorKind) string {
	if kind == schemas.SelectorCSS {
		return probeHTMLCSS
	}
	return probeHTMLXPath
}

func textProbe(kind schemas.SelectorKind) string {
	if kind == schemas.SelectorCSS {
		return probeTextCSS
	}
	return probeTextXPath
}

func clickProbe(kind schemas.SelectorKind) string {
	if kind == schemas.SelectorCSS {
		return probeClickCSS
	}
	return probeClickXPath
}

func fillProbe(kind schemas.SelectorKind) string {
	if kind == schemas.SelectorCSS {
		return probeFillCSS
	}
	return probeFillXPath
}

func attributeProbe(kind schemas.SelectorKind) string {
	if kind == schemas.SelectorCSS {
		return probeAttributeCSS
	}
	return probeAttributeXPath
}

func removeProbe(kind schemas.SelectorKind) string {
	if kind == schemas.SelectorCSS {
		return probeRemoveCSS
	}
	return probeRemoveXPath
}
