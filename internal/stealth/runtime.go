package stealth

// runtimeModificationsJS is applied after the embedded evasions. It patches
// the surfaces that depend on each other being present: the permissions
// allowlists, a consistent WebGL baseline and sane screen metrics.
const runtimeModificationsJS = `(() => {
  'use strict';

  // Permission probes expect user-gesture permissions to sit at 'prompt'
  // on a fresh profile and passive ones at 'granted'.
  if (window.navigator.permissions && window.navigator.permissions.query) {
    const promptNames = ['notifications', 'camera', 'microphone', 'geolocation', 'midi'];
    const grantedNames = ['background-sync', 'accelerometer', 'gyroscope', 'magnetometer'];
    const passthrough = window.navigator.permissions.query.bind(window.navigator.permissions);
    window.navigator.permissions.query = (parameters) => {
      const name = parameters && parameters.name;
      if (promptNames.includes(name)) {
        return Promise.resolve({ state: 'prompt', onchange: null });
      }
      if (grantedNames.includes(name)) {
        return Promise.resolve({ state: 'granted', onchange: null });
      }
      return passthrough(parameters);
    };
  }

  // Stable WebGL baseline; the fingerprint rotation overrides this later.
  if (window.WebGLRenderingContext) {
    const getParameter = WebGLRenderingContext.prototype.getParameter;
    WebGLRenderingContext.prototype.getParameter = function (parameter) {
      if (parameter === 37445) { return 'Intel Inc.'; }
      if (parameter === 37446) { return 'Intel Iris OpenGL Engine'; }
      return getParameter.apply(this, arguments);
    };
  }

  // Headless sometimes reports zero screen metrics.
  if (screen.width === 0 || screen.height === 0) {
    Object.defineProperty(screen, 'width', { get: () => 1920 });
    Object.defineProperty(screen, 'height', { get: () => 1080 });
    Object.defineProperty(screen, 'availWidth', { get: () => 1920 });
    Object.defineProperty(screen, 'availHeight', { get: () => 1040 });
  }
})();`
